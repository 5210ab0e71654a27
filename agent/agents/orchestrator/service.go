package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	fallbackx "github.com/pitchside/pitchside-agent/agent/fallback"
	interpretx "github.com/pitchside/pitchside-agent/agent/interpret"
	memoryx "github.com/pitchside/pitchside-agent/agent/memory"
	nodex "github.com/pitchside/pitchside-agent/agent/nodes/orchestrator"
	paramsx "github.com/pitchside/pitchside-agent/agent/params"
	respondx "github.com/pitchside/pitchside-agent/agent/respond"
	selectorx "github.com/pitchside/pitchside-agent/agent/selector"
	suggestx "github.com/pitchside/pitchside-agent/agent/suggest"
)

var (
	ErrInvalidQuery    = nodex.ErrInvalidQuery
	ErrInvalidUser     = nodex.ErrInvalidUser
	ErrTooManyRequests = errors.New("user query rate exceeded")
	ErrBusy            = errors.New("orchestrator at capacity")
)

type Config struct {
	QueryDeadline time.Duration `envconfig:"QUERY_DEADLINE" split_words:"true" default:"10s"`
	MaxConcurrent int           `envconfig:"MAX_CONCURRENT" split_words:"true" default:"32"`
	UserRate      float64       `envconfig:"USER_RATE" split_words:"true" default:"1"`
	UserBurst     int           `envconfig:"USER_BURST" split_words:"true" default:"5"`
}

// Response is the user-facing result of one query.
type Response struct {
	QueryID     string
	Reply       string
	Suggestions []contractx.Suggestion
	Outcome     contractx.Outcome
}

// Orchestrator runs the full query pipeline: interpret, select,
// synthesize, execute with fallback, suggest, compose, remember.
type Orchestrator struct {
	memory      *memoryx.Store
	interpreter *interpretx.Interpreter
	selector    *selectorx.Selector
	synth       *paramsx.Synthesizer
	planner     *fallbackx.Planner
	suggester   *suggestx.Suggester
	composer    *respondx.Composer

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	cfg      Config
	slots    chan struct{}
	now      func() time.Time
	limitsMu sync.Mutex
	limits   map[string]*rate.Limiter
}

func New(
	memory *memoryx.Store,
	interpreter *interpretx.Interpreter,
	selector *selectorx.Selector,
	synth *paramsx.Synthesizer,
	planner *fallbackx.Planner,
	suggester *suggestx.Suggester,
	composer *respondx.Composer,
	cfg Config,
) (*Orchestrator, error) {
	if memory == nil {
		return nil, errors.New("memory store is required")
	}
	if interpreter == nil {
		return nil, errors.New("interpreter is required")
	}
	if selector == nil {
		return nil, errors.New("selector is required")
	}
	if synth == nil {
		return nil, errors.New("parameter synthesizer is required")
	}
	if planner == nil {
		return nil, errors.New("fallback planner is required")
	}
	if suggester == nil {
		suggester = suggestx.New()
	}
	if composer == nil {
		return nil, errors.New("composer is required")
	}

	if cfg.QueryDeadline <= 0 {
		cfg.QueryDeadline = 10 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 32
	}
	if cfg.UserRate <= 0 {
		cfg.UserRate = 1
	}
	if cfg.UserBurst <= 0 {
		cfg.UserBurst = 5
	}

	o := &Orchestrator{
		memory:      memory,
		interpreter: interpreter,
		selector:    selector,
		synth:       synth,
		planner:     planner,
		suggester:   suggester,
		composer:    composer,
		cfg:         cfg,
		slots:       make(chan struct{}, cfg.MaxConcurrent),
		now:         time.Now,
		limits:      make(map[string]*rate.Limiter, 64),
	}

	graphRunner, err := o.compileHandleQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleQuery runs one query end to end under the global deadline.
func (o *Orchestrator) HandleQuery(ctx context.Context, userID string, text string) (Response, error) {
	if !o.limiter(userID).Allow() {
		return Response{}, fmt.Errorf("%w: user_id=%s", ErrTooManyRequests, userID)
	}

	select {
	case o.slots <- struct{}{}:
		defer func() { <-o.slots }()
	default:
		return Response{}, ErrBusy
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.QueryDeadline)
	defer cancel()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{UserID: userID, Text: text})
	if err != nil {
		// The graph runner aborts between nodes once the deadline
		// expires. The user still gets a reply; only input validation
		// surfaces as an error.
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("user_id", userID).Msg("query deadline expired mid-pipeline")
			return Response{
				Reply:   respondx.ExhaustedText,
				Outcome: contractx.OutcomeExhausted,
			}, nil
		}
		return Response{}, err
	}
	return Response{
		QueryID:     out.QueryID,
		Reply:       out.Reply,
		Suggestions: out.Suggestions,
		Outcome:     out.Outcome,
	}, nil
}

func (o *Orchestrator) limiter(userID string) *rate.Limiter {
	o.limitsMu.Lock()
	defer o.limitsMu.Unlock()

	limiter, ok := o.limits[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(o.cfg.UserRate), o.cfg.UserBurst)
		o.limits[userID] = limiter
	}
	return limiter
}
