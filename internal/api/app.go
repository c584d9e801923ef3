package api

import (
	"context"
	"errors"
	"fmt"
	"milterpolicy/internal/policy"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// RunServerInterruptible starts the lookup API in the background. Closing stop shuts the server
// down gracefully; done yields the listener error, or nil after a clean shutdown.
func RunServerInterruptible(port int, holder *policy.Holder) (stop chan<- struct{}, done <-chan error) {
	h := NewHandler(holder)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// one-shot channels for control & completion
	stopCh := make(chan struct{})
	doneCh := make(chan error, 1) // buffered so goroutines can finish without blocking

	go func() {
		log.Printf("milterpolicy listening on %s\n", srv.Addr)
		err := srv.ListenAndServe()
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneCh <- err
			return
		}
		doneCh <- nil
	}()

	go func() {
		<-stopCh
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	return stopCh, doneCh
}
