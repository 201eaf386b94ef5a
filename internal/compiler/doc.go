// Package compiler turns CUE application manifests into ir values.
//
// A manifest declares the type modules an application expects and the
// initial contents of its bound collections:
//
//	types: {
//		ToDo: { variant: "container", initializer: "newTodo", collection: "list" }
//		Item: { variant: "item", handlers: ["itemAdd", "itemDelete"] }
//	}
//	data: {
//		list: [
//			{id: 1, text: "clean the house"},
//			{id: 2, text: "buy milk"},
//		]
//	}
//
// Values are converted to the ir value model: floats are rejected and every
// value must be concrete.
package compiler
