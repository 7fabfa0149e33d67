package cartoview

import (
	"image"
	"runtime"
	"sync/atomic"
)

// spinLock is a busy-waiting mutex for the front buffer. Holders only copy
// pixels or read a pointer, so waiting is expected to be very short.
type spinLock struct {
	held atomic.Bool
}

func (l *spinLock) Lock() {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *spinLock) TryLock() bool {
	return l.held.CompareAndSwap(false, true)
}

func (l *spinLock) Unlock() {
	l.held.Store(false)
}

// frontBuffer is the presentable frame. It is written only by swap and read
// only while lock is held.
type frontBuffer struct {
	lock      spinLock
	img       *image.RGBA
	transform CameraTransform
	serial    uint64
}

// swap publishes back as the new front frame. The pixels are copied so the
// scheduler keeps exclusive ownership of back.
func (f *frontBuffer) swap(back *image.RGBA, transform CameraTransform) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.img == nil || f.img.Rect.Size() != back.Rect.Size() {
		f.img = image.NewRGBA(image.Rect(0, 0, back.Rect.Dx(), back.Rect.Dy()))
	}
	copy(f.img.Pix, back.Pix)
	f.transform = transform
	f.serial++
}

// acquire locks the front buffer and returns it. The image is nil until the
// first swap. The caller must call release.
func (f *frontBuffer) acquire() (*image.RGBA, CameraTransform) {
	f.lock.Lock()
	return f.img, f.transform
}

func (f *frontBuffer) release() {
	f.lock.Unlock()
}

// snapshot returns a private copy of the front frame.
func (f *frontBuffer) snapshot() (*image.RGBA, CameraTransform, uint64) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.img == nil {
		return nil, f.transform, f.serial
	}
	out := image.NewRGBA(f.img.Rect)
	copy(out.Pix, f.img.Pix)
	return out, f.transform, f.serial
}
