// Package scene defines the scene model for boxel.
// The scene is a flat list of objects (primitives, booleans, sketches and
// generated solids) plus selection, layers, groups and view options. All
// tools mutate it through a single Store.
package scene
