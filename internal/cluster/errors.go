package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"kubeask/internal/api"
)

// target identifies the object an adapter call was about.
type target struct {
	operation string
	resource  string
	namespace string
	name      string
}

// mapError normalizes a client-go error into the api error taxonomy.
func mapError(err error, t target, timeout time.Duration) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		apierrors.IsTimeout(err),
		apierrors.IsServerTimeout(err):
		return &api.TimeoutError{Operation: t.operation, Timeout: timeout}
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", t.operation, err)
	case apierrors.IsNotFound(err):
		return api.NewNotFoundError(t.resource, t.namespace, t.name)
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		s := status.Status()
		return &api.ClusterError{
			StatusCode: int(s.Code),
			Reason:     string(s.Reason),
			Err:        err,
		}
	}

	return &api.TransportFault{Source: "cluster", Err: err}
}
