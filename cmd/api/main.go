package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sistemamedico.org/internal/assistant"
	"sistemamedico.org/internal/auth"
	"sistemamedico.org/internal/blob"
	"sistemamedico.org/internal/clinic"
	"sistemamedico.org/internal/httpapi"
	"sistemamedico.org/internal/obs"
	"sistemamedico.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	uploadRoot := os.Getenv("SISMED_UPLOAD_DIR")
	if uploadRoot == "" {
		uploadRoot = "./uploads"
	}
	blobs, err := blob.New(uploadRoot)
	if err != nil {
		log.Fatalf("upload root: %v", err)
	}

	// Подключение к БД; без DSN сервис работает на in-memory сторах
	// с демо-данными (только для локальной разработки).
	var (
		store   clinic.Store
		creds   auth.CredentialStore
		probe   httpapi.ReadyProbe
		pgStore *pg.Store
		dsn     = os.Getenv("SISMED_PG_DSN")
	)
	if dsn != "" {
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
		creds = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Printf("SISMED_PG_DSN is not set, running with in-memory demo data")
		store, creds = demoStores()
	}

	lifecycle := clinic.NewLifecycle(store, blobs)
	logins := auth.NewService(creds)
	chat := assistant.New(os.Getenv("OPENAI_API_KEY"),
		assistant.WithModel(os.Getenv("SISMED_OPENAI_MODEL")))

	api := httpapi.New(probe, version, lifecycle, logins, chat, blobs.Root())

	addr := ":" + envOr("PORT", "8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(), // уже обёрнут метриками в httpapi
		ReadTimeout:       60 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// gRPC health endpoint для инфраструктуры.
	if grpcAddr := envOr("SISMED_GRPC_ADDR", ":9090"); grpcAddr != "disabled" {
		go func() {
			if err := httpapi.ServeGRPCHealth(ctx, grpcAddr, probe); err != nil {
				log.Printf("grpc health: %v", err)
			}
		}()
	}

	log.Printf("Starting sistemamedico-api %s on %s (uploads: %s)", version, addr, blobs.Root())

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// demoStores seeds an in-memory registry and one demo login (admin/demo1234)
// so the mobile client can be pointed at a fresh checkout.
func demoStores() (clinic.Store, auth.CredentialStore) {
	store := clinic.NewInMemory()
	store.AddPatient(clinic.Patient{
		ID:           1,
		Nombre:       "María González",
		Sexo:         1,
		FechaIngreso: time.Now().UTC().Add(-72 * time.Hour),
	})
	store.AddPatient(clinic.Patient{
		ID:           2,
		Nombre:       "Carlos Ramírez",
		Sexo:         0,
		FechaIngreso: time.Now().UTC().Add(-24 * time.Hour),
	})

	hash, err := auth.HashPassword("demo1234")
	if err != nil {
		log.Fatalf("hash demo password: %v", err)
	}
	creds := auth.NewStaticCredentials(auth.Credential{
		ID:           1,
		Username:     "admin",
		Name:         "Ana Torres",
		PasswordHash: hash,
		Role:         "Administrador",
		RoleID:       1,
	})
	return store, creds
}
