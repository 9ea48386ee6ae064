package session

import (
	"context"
	"fmt"
	"strings"

	blockpress "github.com/gems-gallery/blockpress.go"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
)

// GateStatus is the profile-completeness verdict that gates the posting
// affordances.
type GateStatus int

const (
	// GateAnonymous means no check applies: the handle is unbound or the
	// deployment has no account concept. Affordances gate on authentication
	// alone.
	GateAnonymous GateStatus = iota
	// GateNeedsUsername means the identity has no username yet; posting is
	// withheld behind the create-username affordance.
	GateNeedsUsername
	// GateReady means the profile is complete and posting is open.
	GateReady
)

func (s GateStatus) String() string {
	switch s {
	case GateAnonymous:
		return "anonymous"
	case GateNeedsUsername:
		return "needs-username"
	case GateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Gate evaluates profile completeness. It is stateless: the status in effect
// is always the result of the last successful Evaluate, kept by the caller,
// so the affordances cannot drift from the check.
type Gate struct {
	logger logger.Logger
}

func NewGate(log logger.Logger) *Gate {
	return &Gate{logger: log}
}

// Evaluate looks up the username behind the handle. Unbound handles and
// deployments without accounts skip the lookup entirely and report
// GateAnonymous. On error the caller retains its previous status.
func (g *Gate) Evaluate(ctx context.Context, handle *blockpress.Client) (GateStatus, error) {
	if handle == nil || handle.Identity() == nil || !handle.Capabilities().HasAccounts {
		return GateAnonymous, nil
	}

	name, err := handle.GetUsername(ctx)
	if err != nil {
		g.logger.Warn("username lookup failed", "error", err)
		return GateAnonymous, fmt.Errorf("profile check: %w", err)
	}

	if name == nil || *name == "" {
		return GateNeedsUsername, nil
	}
	return GateReady, nil
}

// CreateUsername claims a username for the handle's identity. A service
// refusal (boolean false) surfaces as ErrUpdateRejected, distinct from a
// transport failure.
func (g *Gate) CreateUsername(ctx context.Context, handle *blockpress.Client, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: username", blockpress.ErrValidation)
	}

	ok, err := handle.CreateUser(ctx, name)
	if err != nil {
		return fmt.Errorf("create username: %w", err)
	}
	if !ok {
		return fmt.Errorf("create username %q: %w", name, blockpress.ErrUpdateRejected)
	}
	return nil
}
