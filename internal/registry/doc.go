// Package registry maps type names to type modules: named handler sets with
// an optional initializer.
//
// Modules come in a closed set of capability variants:
//
//   - *Module         plain behavior bag (forms, buttons, banners)
//   - *ContainerType  owns a bound collection; declares its default
//     collection name and identity-key field
//   - *ItemType       the type of rendered fragment roots
//
// Registration is last-write-wins. Re-registering a name replaces the
// module, and handlers resolved afterwards run the new definition. This is
// the hot-patch path and is not guarded.
//
// Initialize runs a type's initializer exactly once per element and keeps
// its return value as that element's private state.
package registry
