// Package schema loads and validates machine configurations.
//
// Configurations can be read from YAML or JSON documents, or decoded from a generic
// map (as produced by other decoders). Document order of the states is preserved:
//
//	cfg, err := schema.Load("door.yaml")
//	if err != nil {
//	    // Handle read or parse errors
//	}
//
//	if err := schema.ValidateConfig(cfg); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        fmt.Println(e)
//	    }
//	}
//
// Loading never validates; ValidateConfig reports every problem found at once
// as an *AggregateError of *ValidationError values.
package schema
