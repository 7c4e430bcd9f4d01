package universe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"HeatDash/internal/domain/models"
	drepo "HeatDash/internal/domain/repository"
	pkghttp "HeatDash/pkg/http"
	applogger "HeatDash/pkg/logger"
	"HeatDash/pkg/util"
)

var _ drepo.UniverseResolver = (*Remote)(nil)

// Remote looks baskets up at {baseURL}/{name}, falling back to a local resolver
// when the service is unreachable or does not know the name.
type Remote struct {
	baseURL  string
	client   *pkghttp.Client
	fallback drepo.UniverseResolver
	attempts int
	l        *applogger.Logger
}

type remoteBasket struct {
	Symbols []string `json:"symbols"`
}

func NewRemote(baseURL string, fallback drepo.UniverseResolver, l *applogger.Logger) *Remote {
	if l == nil {
		l = applogger.Nop()
	}
	return &Remote{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   pkghttp.NewClient(pkghttp.WithTimeout(5*time.Second), pkghttp.WithRetryBackoff(100*time.Millisecond)),
		fallback: fallback,
		attempts: 3,
		l:        l,
	}
}

func (r *Remote) Resolve(ctx context.Context, name string) ([]string, error) {
	var out remoteBasket
	err := r.client.GetJSONWithRetry(ctx, r.baseURL+"/"+url.PathEscape(name), &out, r.attempts)
	if err == nil {
		if syms := util.NormalizeSymbols(out.Symbols); len(syms) > 0 {
			return syms, nil
		}
		err = models.ErrEmptyUniverse
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var se *pkghttp.StatusError
	if !errors.As(err, &se) || se.Code != 404 {
		r.l.Warn("remote universe lookup failed", applogger.String("universe", name), applogger.Error(err))
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("%q: %w", name, models.ErrUnknownUniverse)
	}
	return r.fallback.Resolve(ctx, name)
}

// Names lists the locally known baskets; the remote service is not enumerable.
func (r *Remote) Names() []string {
	if r.fallback == nil {
		return nil
	}
	return r.fallback.Names()
}
