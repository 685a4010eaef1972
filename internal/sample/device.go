package sample

import "context"

// deviceCapture is the subset of *rtlsdr.RTLSDRDevice the DeviceSource
// adapter needs; kept as a small interface so this package does not
// import internal/rtlsdr directly (and so tests can fake a device).
type deviceCapture interface {
	StartCapture(ctx context.Context, dataChan chan<- []byte) error
}

// DeviceSource adapts an RTL-SDR device callback (delivering buffers
// asynchronously on its own goroutine, per spec section 4.10's first
// back-end) into the Source contract, posting each buffer into a bounded
// queue that this goroutine then drains into the Window -- option (a) of
// the two admissible designs named in spec section 9.
type DeviceSource struct {
	device deviceCapture
}

// NewDeviceSource wraps an already-configured device.
func NewDeviceSource(device deviceCapture) *DeviceSource {
	return &DeviceSource{device: device}
}

// Run implements Source.
func (d *DeviceSource) Run(ctx context.Context, w *Window) error {
	dataChan := make(chan []byte, 100)

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.device.StartCapture(ctx, dataChan)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case data, ok := <-dataChan:
			if !ok {
				return nil
			}
			w.Fill(data)
		}
	}
}
