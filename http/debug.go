package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/manifest"
	"github.com/km-arc/go-container/http/validation"
	"github.com/km-arc/go-container/routing"
)

// Debug serves read-only views of a compiled container, the HTTP
// counterpart of Symfony's debug:container.
type Debug struct {
	c      *container.Container
	names  map[string]string
	logger *zap.Logger
}

// NewDebug creates the handlers for c. names maps service keys to catalog
// factory names for the manifest dump and may be nil.
func NewDebug(c *container.Container, names map[string]string, logger *zap.Logger) *Debug {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debug{c: c, names: names, logger: logger}
}

// Routes registers the endpoints on r, usually under a prefix:
//
//	router.Prefix("/_container", debug.Routes)
func (d *Debug) Routes(r *routing.Router) {
	r.Get("/", d.Health)
	r.Get("/services", d.Services)
	r.Get("/services/{key}", d.Service)
	r.Get("/aliases", d.Aliases)
	r.Get("/tags", d.Tags)
	r.Get("/manifest", d.Manifest)
	r.Post("/warm", d.Warm)
}

// Health summarizes the container.
func (d *Debug) Health(w http.ResponseWriter, _ *http.Request) {
	services := d.c.Services()
	initialized := 0
	for _, s := range services {
		if s.Initialized {
			initialized++
		}
	}
	NewResponse(w).Success(map[string]any{
		"container":   d.c.ID(),
		"services":    len(services),
		"aliases":     len(d.c.Aliases()),
		"initialized": initialized,
	})
}

// Services lists every canonical key.
//
//	GET /services?status=removed&initialized=true&tag=reports&limit=50
func (d *Debug) Services(w http.ResponseWriter, r *http.Request) {
	req, res := NewRequest(r), NewResponse(w)
	q := req.QueryAll()
	v := validation.Make(q, validation.Rules{
		"status":      "sometimes|in:" + strings.Join(statusNames(), ","),
		"initialized": "sometimes|boolean",
		"tag":         "sometimes|service_key|max:255",
		"limit":       "sometimes|integer|gte:1|lte:1000",
	})
	if v.Fails() {
		res.ValidationError(v.Errors())
		return
	}

	var tagged map[string]bool
	if tag := q["tag"]; tag != "" {
		tagged = make(map[string]bool)
		for _, k := range d.c.TaggedKeys(tag) {
			tagged[k] = true
		}
	}

	out := make([]container.ServiceInfo, 0)
	for _, s := range d.c.Services() {
		if st := q["status"]; st != "" && s.Status != st {
			continue
		}
		if in := q["initialized"]; in != "" {
			want, _ := strconv.ParseBool(in)
			if s.Initialized != want {
				continue
			}
		}
		if tagged != nil && !tagged[s.Key] {
			continue
		}
		out = append(out, s)
	}
	if limit, _ := strconv.Atoi(q["limit"]); limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	res.Success(out)
}

// Service describes one key or alias. Unknown keys are 404, removed keys 410.
func (d *Debug) Service(w http.ResponseWriter, r *http.Request) {
	req, res := NewRequest(r), NewResponse(w)
	key := req.RouteParam("key")
	v := validation.Make(map[string]string{"key": key}, validation.Rules{"key": validation.KeyRules})
	if v.Fails() {
		res.ValidationError(v.Errors())
		return
	}

	info, ok := d.c.Inspect(key)
	if !ok {
		fields := map[string]any{"key": key}
		if s := d.c.Suggest(key); s != "" {
			fields["did_you_mean"] = s
		}
		res.Problem(http.StatusNotFound, fmt.Sprintf("Service %q not found.", key), fields)
		return
	}
	if info.Status == container.Removed.String() {
		res.Problem(http.StatusGone, fmt.Sprintf("Service %q was removed at compile time.", key), map[string]any{
			"key":    info.Key,
			"reason": info.RemovalReason,
		})
		return
	}
	if req.WantsYAML() {
		res.YAML(http.StatusOK, info)
		return
	}
	res.Success(info)
}

// Aliases lists the alias table split by visibility.
func (d *Debug) Aliases(w http.ResponseWriter, _ *http.Request) {
	all := d.c.Aliases()
	private := make(map[string]string)
	for _, a := range d.c.PrivateAliases() {
		private[a] = all[a]
		delete(all, a)
	}
	NewResponse(w).Success(map[string]any{
		"public":  all,
		"private": private,
	})
}

// Tags lists every tag with its keys in declaration order.
func (d *Debug) Tags(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]string)
	for _, tag := range d.c.TagNames() {
		out[tag] = d.c.TaggedKeys(tag)
	}
	NewResponse(w).Success(out)
}

// Manifest dumps the compiled graph as YAML.
func (d *Debug) Manifest(w http.ResponseWriter, _ *http.Request) {
	m := manifest.FromContainer(d.c, d.names)
	w.Header().Set("Content-Type", "application/yaml")
	if err := m.Write(w); err != nil {
		d.logger.Error("manifest dump failed", zap.Error(err))
	}
}

type warmRequest struct {
	Keys []string `json:"keys"`
}

// Warm builds the requested keys, or every cached service when the body is
// empty.
//
//	POST /warm {"keys": ["logger", "router"]}
func (d *Debug) Warm(w http.ResponseWriter, r *http.Request) {
	req, res := NewRequest(r), NewResponse(w)
	var body warmRequest
	if err := req.Bind(&body); err != nil {
		res.Error(http.StatusBadRequest, err.Error())
		return
	}
	data := make(map[string]string, len(body.Keys))
	rules := make(validation.Rules, len(body.Keys))
	for i, k := range body.Keys {
		field := fmt.Sprintf("keys.%d", i)
		data[field] = k
		rules[field] = validation.KeyRules
	}
	if v := validation.Make(data, rules); v.Fails() {
		res.ValidationError(v.Errors())
		return
	}

	if err := d.c.Warm(r.Context(), body.Keys...); err != nil {
		d.logger.Warn("warm-up over http failed", zap.Error(err))
		res.Problem(http.StatusInternalServerError, "Warm-up incomplete.", map[string]any{
			"kind":  container.KindName(err),
			"error": err.Error(),
		})
		return
	}
	res.Success(map[string]any{"warmed": len(body.Keys)})
}

func statusNames() []string {
	return []string{
		container.Constructible.String(),
		container.Removed.String(),
		container.Synthetic.String(),
	}
}
