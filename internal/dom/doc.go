// Package dom wraps golang.org/x/net/html node trees with the operations the
// weave engine needs: attribute access, deep cloning, placeholder
// substitution, form control handling and the markup attribute contract.
//
// # Attribute contract
//
//	data-w-type="Item"                 bound type name
//	data-w-on="submit:itemAdd click:x"  event:handler bindings
//	data-w-list="list"                 container bound to a collection
//	data-w-key="id"                    identity-key field (default "id")
//	data-w-id="3"                      written by the engine on fragment roots
//
// A container's Template Fragment is its first <template> child, which must
// hold exactly one element root. Placeholders are written {{field}} or
// {{field.sub}} in text and attribute values.
package dom
