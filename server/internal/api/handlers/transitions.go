package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/service"
)

// MaxTransitionLimit caps the limit query parameter.
const MaxTransitionLimit = 5000

var transitionKinds = map[models.TransitionKind]bool{
	models.TransitionController: true,
	models.TransitionPodState:   true,
	models.TransitionElection:   true,
	models.TransitionEpoch:      true,
	models.TransitionMediation:  true,
	models.TransitionLink:       true,
}

// TransitionHandler serves the transition journal.
type TransitionHandler struct {
	journal *service.Journal
}

// NewTransitionHandler creates a new TransitionHandler.
func NewTransitionHandler(journal *service.Journal) *TransitionHandler {
	return &TransitionHandler{journal: journal}
}

// ListTransitions handles GET /api/v1/transitions.
//
// Query parameters, all optional:
//   - from, to: inclusive tick range
//   - kind: controller, pod_state, election, epoch, mediation or link
//   - subject: exact subject, e.g. "pod1/site2fa1"
//   - limit: at most MaxTransitionLimit entries
func (h *TransitionHandler) ListTransitions(c *gin.Context) {
	filter, err := parseTransitionFilter(c)
	if err != nil {
		mapErrorToResponse(c, err)
		return
	}

	ctx := c.Request.Context()
	transitions, err := h.journal.Query(ctx, filter)
	if err != nil {
		mapErrorToResponse(c, err)
		return
	}
	total, err := h.journal.Count(ctx)
	if err != nil {
		mapErrorToResponse(c, err)
		return
	}
	if transitions == nil {
		transitions = []models.Transition{}
	}

	respondSuccess(c, http.StatusOK, models.TransitionListResponse{
		Transitions: transitions,
		Total:       total,
	})
}

func parseTransitionFilter(c *gin.Context) (service.TransitionFilter, error) {
	var f service.TransitionFilter

	for _, q := range []struct {
		name string
		dst  *uint64
	}{{"from", &f.FromTick}, {"to", &f.ToTick}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("%w: %s must be a tick number", models.ErrInvalidRequest, q.name)
		}
		*q.dst = v
	}
	if f.ToTick != 0 && f.FromTick > f.ToTick {
		return f, fmt.Errorf("%w: from %d is after to %d", models.ErrInvalidRequest, f.FromTick, f.ToTick)
	}

	if kind := models.TransitionKind(c.Query("kind")); kind != "" {
		if !transitionKinds[kind] {
			return f, fmt.Errorf("%w: unknown transition kind %q", models.ErrInvalidRequest, kind)
		}
		f.Kind = kind
	}
	f.Subject = c.Query("subject")

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxTransitionLimit {
			return f, fmt.Errorf("%w: limit must be between 1 and %d", models.ErrInvalidRequest, MaxTransitionLimit)
		}
		f.Limit = limit
	}
	return f, nil
}
