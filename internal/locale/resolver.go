package locale

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/text/language"

	"venue-pos/internal/common/logger"
)

// Source tells which step chose the locale.
type Source string

const (
	SourcePreference Source = "preference"
	SourceGeo        Source = "geolocation"
	SourceBrowser    Source = "browser"
	SourceDefault    Source = "default"
)

type Request struct {
	DeviceID       string
	AcceptLanguage string
	IP             string
}

type Resolution struct {
	Locale Locale `json:"locale"`
	Source Source `json:"source"`
}

// Preferences reads a device's saved locale; "" means none saved.
type Preferences interface {
	Locale(ctx context.Context, deviceID string) (string, error)
}

type Geolocator interface {
	Country(ctx context.Context, ip string) (string, error)
}

type ResolverOptions struct {
	Default    string
	GeoTimeout time.Duration
	GeoTTL     time.Duration
	Logger     *logger.Logger
}

type Resolver struct {
	prefs   Preferences
	geo     Geolocator
	opts    ResolverOptions
	cache   *gocache.Cache
	matcher language.Matcher
	tags    []language.Tag
	log     *logger.Logger
}

func NewResolver(prefs Preferences, geo Geolocator, opts ResolverOptions) *Resolver {
	if opts.Default == "" {
		opts.Default = "en"
	}
	if opts.GeoTimeout <= 0 {
		opts.GeoTimeout = 5 * time.Second
	}
	if opts.GeoTTL <= 0 {
		opts.GeoTTL = 24 * time.Hour
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	tags := make([]language.Tag, 0, len(Codes()))
	for _, c := range Codes() {
		tags = append(tags, language.MustParse(c))
	}
	return &Resolver{
		prefs:   prefs,
		geo:     geo,
		opts:    opts,
		cache:   gocache.New(opts.GeoTTL, time.Hour),
		matcher: language.NewMatcher(tags),
		tags:    tags,
		log:     lg,
	}
}

// Resolve picks saved preference, then geolocated country, then Accept-Language, then the default.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	if r.prefs != nil && req.DeviceID != "" {
		code, err := r.prefs.Locale(ctx, req.DeviceID)
		if err != nil {
			r.log.Warn("locale_preference_failed", map[string]any{"device_id": req.DeviceID, "error": err.Error()})
		} else if l, ok := Lookup(code); ok {
			return Resolution{Locale: l, Source: SourcePreference}
		}
	}
	if l, ok := r.fromGeo(ctx, req.IP); ok {
		return Resolution{Locale: l, Source: SourceGeo}
	}
	if l, ok := r.fromAcceptLanguage(req.AcceptLanguage); ok {
		return Resolution{Locale: l, Source: SourceBrowser}
	}
	return Resolution{Locale: MustLookup(r.opts.Default), Source: SourceDefault}
}

func (r *Resolver) fromGeo(ctx context.Context, ip string) (Locale, bool) {
	if r.geo == nil || ip == "" {
		return Locale{}, false
	}
	if v, ok := r.cache.Get(ip); ok {
		return ForCountry(v.(string))
	}
	gctx, cancel := context.WithTimeout(ctx, r.opts.GeoTimeout)
	defer cancel()
	country, err := r.geo.Country(gctx, ip)
	if err != nil {
		r.log.Debug("geolocation_skipped", map[string]any{"ip": ip, "error": err.Error()})
		return Locale{}, false
	}
	r.cache.SetDefault(ip, country)
	return ForCountry(country)
}

func (r *Resolver) fromAcceptLanguage(header string) (Locale, bool) {
	if strings.TrimSpace(header) == "" {
		return Locale{}, false
	}
	prefs, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(prefs) == 0 {
		return Locale{}, false
	}
	_, idx, conf := r.matcher.Match(prefs...)
	if conf == language.No {
		return Locale{}, false
	}
	return Lookup(r.tags[idx].String())
}

// HTTPGeolocator asks an IP lookup service for {"country_code": "TR"} at <base>/<ip>.
type HTTPGeolocator struct {
	Base   string
	Client *http.Client
}

func (g HTTPGeolocator) Country(ctx context.Context, ip string) (string, error) {
	if parsed := net.ParseIP(ip); parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return "", fmt.Errorf("no public address %q", ip)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(g.Base, "/")+"/"+ip, nil)
	if err != nil {
		return "", err
	}
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocation: status %d", resp.StatusCode)
	}
	var body struct {
		CountryCode string `json:"country_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("geolocation: %w", err)
	}
	if body.CountryCode == "" {
		return "", fmt.Errorf("geolocation: empty country")
	}
	return body.CountryCode, nil
}
