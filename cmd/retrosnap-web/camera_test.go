package main

import (
	"context"
	"errors"
	"image"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fpang/retrosnap/internal/caption"
	"github.com/fpang/retrosnap/internal/session"
	"github.com/fpang/retrosnap/internal/source"
)

type fakeCamera struct {
	*source.Static
	closed chan struct{}
}

func (c *fakeCamera) Close() error {
	close(c.closed)
	return nil
}

type cameraRig struct {
	mu    sync.Mutex
	opens int
	fail  error
	cams  []*fakeCamera
	photo image.Image
}

func (r *cameraRig) open(context.Context) (camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opens++
	if r.fail != nil {
		return nil, r.fail
	}
	cam := &fakeCamera{Static: source.NewStatic(r.photo), closed: make(chan struct{})}
	r.cams = append(r.cams, cam)
	return cam, nil
}

func (r *cameraRig) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *cameraRig) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens
}

func (r *cameraRig) camera(i int) *fakeCamera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cams[i]
}

func newLiveSession(t *testing.T, rig *cameraRig) (*session.Session, *liveSource) {
	t.Helper()
	live := newLiveSource(rig.open)
	enricher := caption.Func(func(context.Context, []byte) (string, error) { return "Smile", nil })
	sess, err := session.New(live, enricher, session.Options{})
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	t.Cleanup(sess.Close)
	detach := live.attach(context.Background(), sess)
	t.Cleanup(detach)
	return sess, live
}

func waitClosed(t *testing.T, cam *fakeCamera) {
	t.Helper()
	select {
	case <-cam.closed:
	case <-time.After(3 * time.Second):
		t.Fatal("camera not released")
	}
}

func TestLiveSourceLifecycle(t *testing.T) {
	rig := &cameraRig{photo: testPhoto()}
	sess, live := newLiveSession(t, rig)

	if got := live.Size(); got != image.Pt(320, 240) {
		t.Fatalf("Size() after attach = %v", got)
	}

	if _, err := sess.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	waitClosed(t, rig.camera(0))
	if got := live.Size(); got != (image.Point{}) {
		t.Errorf("Size() while showing result = %v, want zero", got)
	}

	waitForStatus(t, sess, session.StatusCaptioned)
	sess.Reset()

	deadline := time.Now().Add(3 * time.Second)
	for live.Size() == (image.Point{}) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rig.openCount() != 2 {
		t.Errorf("opens = %d, want 2", rig.openCount())
	}
	if live.Size() == (image.Point{}) {
		t.Error("camera not reacquired after reset")
	}
}

func TestLiveSourceAcquireFailure(t *testing.T) {
	rig := &cameraRig{photo: testPhoto(), fail: errors.New("permission denied")}
	sess, live := newLiveSession(t, rig)

	st := sess.State()
	if st.LastError == nil || st.Message != session.MessageCameraError {
		t.Fatalf("state = %+v, want camera error", st)
	}

	srv := &server{sess: sess, live: live}
	h := srv.routes()
	if rec := do(t, h, http.MethodPost, "/api/capture", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("capture status = %d, want 503", rec.Code)
	}

	// The next capture retries acquisition.
	rig.setFail(nil)
	if rec := do(t, h, http.MethodPost, "/api/capture", ""); rec.Code != http.StatusAccepted {
		t.Errorf("capture after recovery status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if sess.State().LastError != nil {
		t.Error("camera error not cleared after successful acquisition")
	}
}
