package present

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

// Recreate tears down the current chain and its dependents and builds them
// again for the current window size. It is also the first build. The
// device, its command pool and queues are left alone.
//
// On success every dependent matches the new chain. On failure no chain
// and no dependents remain, and the error is fatal for presentation.
func (r *Renderer) Recreate() error {
	width, height, err := r.waitWindow()
	if err != nil {
		return err
	}

	// Nothing may be destroyed while pending GPU work can still reference it.
	if err := r.device.Device.WaitIdle(); err != nil {
		return fmt.Errorf("%w: wait idle before rebuild: %v", core.ErrBuild, err)
	}

	oldCount := r.chain.ImageCount()
	r.teardown()

	chain, err := BuildChain(r.device.Device, r.surface, width, height)
	if err != nil {
		return err
	}
	if err := r.dependents.Build(chain); err != nil {
		chain.Teardown(r.device.Device)
		return fmt.Errorf("%w: %w", core.ErrDependentCreation, err)
	}

	r.chain = chain
	n := chain.ImageCount()
	r.imagesInFlight = make([]int, n)
	for i := range r.imagesInFlight {
		r.imagesInFlight[i] = noSlot
	}
	r.cursor.Rebind(n)
	r.recreatePending = false

	if oldCount != 0 && oldCount != n {
		core.LogInfo("Image count changed from %d to %d.", oldCount, n)
	}
	return nil
}

// teardown releases dependents before the chain they were built from.
func (r *Renderer) teardown() {
	r.dependents.Destroy()
	if r.chain != nil {
		r.chain.Teardown(r.device.Device)
		r.chain = nil
	}
	r.imagesInFlight = nil
}

// Shutdown drains the GPU and releases the chain and its dependents. The
// device itself belongs to the caller.
func (r *Renderer) Shutdown() error {
	var err error
	if r.device != nil && r.device.Device != nil {
		if werr := r.device.Device.WaitIdle(); werr != nil {
			err = fmt.Errorf("failed to drain device on shutdown: %w", werr)
		}
	}
	r.teardown()
	r.cursor.Rebind(0)
	return err
}
