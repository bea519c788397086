/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing machine configurations.

It allows developers to define state machines using a type-safe, fluent builder pattern
instead of relying on external YAML or JSON files. States keep the order in which they
were added, which is the order rewind.Machine.States reports them in.

Example usage:

	package main

	import (
		"github.com/aretw0/rewind"
		"github.com/aretw0/rewind/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		b.Add("draft").Initial().
			On("submit", "review")

		b.Add("review").
			On("approve", "published").
			On("reject", "draft")

		b.Add("published")

		cfg, err := b.Build()
		if err != nil {
			panic(err)
		}

		m, _ := rewind.New(cfg)
		_ = m.Trigger("submit")
	}
*/
package dsl
