package gltex

// withPreservedTexture binds id to target, runs fn, and rebinds
// whatever was bound before, on every exit path. Mutating a texture
// requires it to be the current object for its target, and callers
// must never observe a changed global binding as a side effect.
func withPreservedTexture(dev Device, target, id uint32, fn func() error) error {
	prev := dev.BoundTexture(bindingQuery(target))
	dev.BindTexture(target, id)
	defer dev.BindTexture(target, prev)
	return fn()
}
