package service

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/microservices/staffauth/repository"
)

var ErrKioskNotFound = errors.New("kiosk session not found")

type KiosksOptions struct {
	PINLength int
	// DefaultVenueID skips code entry on single-venue deployments.
	DefaultVenueID string
	TTL            time.Duration
	Logger         *logger.Logger
}

// Kiosks holds in-progress kiosk logins; idle ones expire.
type Kiosks struct {
	repo   repository.StaffRepositoryInterface
	tokens *Tokens
	opts   KiosksOptions
	log    *logger.Logger
	cache  *gocache.Cache
}

func NewKiosks(repo repository.StaffRepositoryInterface, tokens *Tokens, opts KiosksOptions) *Kiosks {
	if opts.PINLength <= 0 {
		opts.PINLength = 4
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	return &Kiosks{repo: repo, tokens: tokens, opts: opts, log: lg, cache: gocache.New(opts.TTL, time.Minute)}
}

func (ks *Kiosks) Start(ctx context.Context, lang string) (*Kiosk, error) {
	k := newKiosk(ks.repo, ks.tokens, ks.opts.PINLength, lang, ks.log)
	if ks.opts.DefaultVenueID != "" {
		v, err := ks.repo.Venue(ctx, ks.opts.DefaultVenueID)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		err = k.enterVenue(ctx, v)
		k.fixed = true
		k.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	ks.cache.SetDefault(k.ID(), k)
	return k, nil
}

// Get returns a live kiosk and extends its expiry.
func (ks *Kiosks) Get(id string) (*Kiosk, error) {
	v, ok := ks.cache.Get(id)
	if !ok {
		return nil, ErrKioskNotFound
	}
	ks.cache.SetDefault(id, v)
	return v.(*Kiosk), nil
}

func (ks *Kiosks) Tokens() *Tokens { return ks.tokens }
