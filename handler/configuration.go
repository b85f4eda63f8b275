package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/stevemurr/simple-config-server/auth"
	"github.com/stevemurr/simple-config-server/configuration"
	"github.com/stevemurr/simple-config-server/dispatch"
	"github.com/stevemurr/simple-config-server/listopt"
	"github.com/stevemurr/simple-config-server/store"
)

// ConfigurationController exposes configuration records as REST resources
// named by their "name" field.
type ConfigurationController struct {
	baseURL string
	service *configuration.Service
}

func NewConfigurationController(baseURL string, service *configuration.Service) *ConfigurationController {
	return &ConfigurationController{baseURL: baseURL, service: service}
}

// Register adds the controller's routes to d.
func (c *ConfigurationController) Register(d *dispatch.Dispatcher) {
	base := strings.ToLower(c.baseURL)
	byID := dispatch.Regexp(regexp.MustCompile("^" + regexp.QuoteMeta(base) + "/([-_a-z0-9]*)$"))

	d.Route(base, http.MethodGet, dispatch.HandlerFunc(c.list))
	d.Route(base+"/", http.MethodGet, dispatch.HandlerFunc(c.list))
	d.Add(byID, http.MethodGet, dispatch.HandlerFunc(c.get))
	d.Add(byID, http.MethodPut, dispatch.HandlerFunc(c.save))
	d.Add(byID, http.MethodDelete, dispatch.HandlerFunc(c.remove))
}

func (c *ConfigurationController) list(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
	opts, err := listopt.ParseRequest(r.Request)
	if err != nil {
		w.SetStatus(http.StatusBadRequest)
		return w.End("Invalid Paging Options")
	}

	records, err := c.service.Find(r.Context(), opts)
	if err != nil {
		return err
	}
	if records == nil {
		records = []store.Doc{}
	}
	return w.SendJSON(map[string]any{"configurations": records}, http.StatusOK)
}

func (c *ConfigurationController) get(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
	rec, ok, err := c.service.FindByID(r.Context(), r.Match(0))
	if err != nil {
		return err
	}
	if !ok {
		w.SetStatus(http.StatusNotFound)
		return w.End("")
	}
	return w.SendJSON(rec, http.StatusOK)
}

// save creates or replaces the record named in the path. The name comes from
// the path and the username from the logged in user, whatever the body says.
func (c *ConfigurationController) save(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
	id := r.Match(0)
	rec := store.Doc{}
	if body, ok := r.PayloadObject(); ok {
		rec = store.Doc(body).Clone()
	}
	if user, ok := auth.UserFrom(r.Context()); ok && user.Name != "" {
		rec["username"] = user.Name
	}
	rec["name"] = id

	updated, err := c.service.Save(r.Context(), rec)
	if err != nil {
		var verrs configuration.ValidationErrors
		if errors.As(err, &verrs) {
			return w.SendJSON(map[string]any{"errors": verrs}, http.StatusBadRequest)
		}
		return err
	}

	if updated {
		w.SetStatus(http.StatusNoContent)
		return w.End("")
	}
	w.Header().Set("Location", c.baseURL+"/"+id)
	return w.SendJSON(rec, http.StatusCreated)
}

func (c *ConfigurationController) remove(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
	removed, err := c.service.Remove(r.Context(), r.Match(0))
	if err != nil {
		return err
	}
	if removed {
		w.SetStatus(http.StatusNoContent)
	} else {
		w.SetStatus(http.StatusNotFound)
	}
	return w.End("")
}
