package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Zones      *ZoneHandler
	Schedules  *ScheduleHandler
	Bookings   *BookingHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Zones != nil {
		mux.HandleFunc("/zones", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Zones.List(w, r)
			case http.MethodPost:
				cfg.Zones.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	mux.HandleFunc("/zones/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/zones/")
		segments := strings.Split(strings.Trim(path, "/"), "/")
		if len(segments) == 0 || segments[0] == "" {
			http.NotFound(w, r)
			return
		}

		zoneID := segments[0]
		rest := segments[1:]
		r = r.WithContext(ContextWithZoneID(r.Context(), zoneID))

		switch {
		case len(rest) == 0:
			if cfg.Zones == nil {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Zones.Get(w, r)
			case http.MethodPut:
				cfg.Zones.Update(w, r)
			case http.MethodDelete:
				cfg.Zones.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}

		case rest[0] == "schedule" && cfg.Schedules != nil:
			switch {
			case len(rest) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Schedules.GetWeek(w, r)
				case http.MethodPost:
					cfg.Schedules.Save(w, r)
				case http.MethodDelete:
					cfg.Schedules.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
				}
			case len(rest) == 2 && rest[1] == "blocks":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Schedules.Blocks(w, r)
			case len(rest) == 2 && rest[1] == "overrides":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Schedules.Overrides(w, r)
			case len(rest) == 2 && rest[1] == "views" && cfg.Bookings != nil:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Bookings.Views(w, r)
			default:
				http.NotFound(w, r)
			}

		case rest[0] == "bookings" && cfg.Bookings != nil:
			switch {
			case len(rest) == 1:
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Bookings.Sync(w, r)
			case len(rest) == 2 && rest[1] != "":
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				cfg.Bookings.Remove(w, r, rest[1])
			default:
				http.NotFound(w, r)
			}

		default:
			http.NotFound(w, r)
		}
	})

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
