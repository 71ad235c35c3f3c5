package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"sistemamedico.org/internal/assistant"
	"sistemamedico.org/internal/auth"
	"sistemamedico.org/internal/clinic"
	"sistemamedico.org/internal/obs"
)

// ReadyProbe — простая проверка готовности (ping БД).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API — HTTP слой.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	clinic     *clinic.Lifecycle
	logins     *auth.Service
	chat       *assistant.Client
	uploadRoot string

	rateBurst  int
	ratePerSec int
}

// New wires the HTTP routes. uploadRoot is served read-only under /uploads/;
// writes and deletes always go through the lifecycle.
func New(rp ReadyProbe, version string, lifecycle *clinic.Lifecycle, logins *auth.Service, chat *assistant.Client, uploadRoot string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		clinic:     lifecycle,
		logins:     logins,
		chat:       chat,
		uploadRoot: uploadRoot,
		rateBurst:  30,
		ratePerSec: 15,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// API
	a.mux.HandleFunc("/api/login", a.handleLogin)
	a.mux.HandleFunc("/api/patients", a.handlePatients)
	a.mux.HandleFunc("/api/patients/", a.handlePatientResource)
	a.mux.HandleFunc("/api/studies/", a.handleStudyResource)
	a.mux.HandleFunc("/api/chat", a.handleChat)

	// Uploaded studies are served straight from disk; the lifecycle is not
	// on the read path.
	if uploadRoot != "" {
		a.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadRoot))))
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = LoggingJSON(h)
	h = MaxBodyBytes(h, 64<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
