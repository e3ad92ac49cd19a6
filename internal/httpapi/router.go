package httpapi

import "net/http"

// New returns the fully middlewared handler for the dashboard API.
func New(d Deps) http.Handler {
	return Chain(NewMux(d),
		RequestID,
		Recover(d.Log),
		AccessLog(d.Log),
		Cors,
	)
}

// NewMux wires routes without middleware, which keeps handler tests
// simple.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: Health,
	}))

	ph := PostingsHandler{Store: d.Store, Hub: d.Hub}
	mux.HandleFunc("/postings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.List,
	}))
	mux.HandleFunc("/postings/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:   ph.GetByPath,
		http.MethodPatch: ph.PatchByPath,
	}))

	ah := AttemptsHandler{Store: d.Store, Hub: d.Hub}
	mux.HandleFunc("/attempts/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:   ah.GetByPath,
		http.MethodPatch: ah.PatchByPath,
	}))

	sh := StatsHandler{Store: d.Store, Loc: d.Loc}
	mux.HandleFunc("/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Get,
	}))

	ch := ConfigHandler{CfgVal: d.CfgVal, UserCfgPath: d.UserCfgPath, LoadCfg: d.LoadCfg}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))

	dh := DiscoverHandler{Run: d.RunDiscovery}
	mux.HandleFunc("/discover/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Trigger,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
