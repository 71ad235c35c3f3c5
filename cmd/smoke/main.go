// Command smoke drives a deployed sistemamedico-api through the full study
// lifecycle: login, list patients, upload a study, list it back, delete it.
// Exits non-zero on the first unexpected response.
//
// The hash subcommand prints a bcrypt hash for seeding user rows.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"sistemamedico.org/internal/auth"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) > 1 && os.Args[1] == "hash" {
		if len(os.Args) != 3 {
			log.Fatal("usage: smoke hash <password>")
		}
		hash, err := auth.HashPassword(os.Args[2])
		if err != nil {
			log.Fatalf("hash: %v", err)
		}
		fmt.Println(hash)
		return
	}

	baseURL := envOr("SISMED_BASE_URL", "http://localhost:8080")
	username := envOr("SISMED_SMOKE_USER", "admin")
	password := envOr("SISMED_SMOKE_PASSWORD", "demo1234")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}

	token, err := login(ctx, client, baseURL, username, password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	patients, err := getJSON[[]struct {
		ID     int64  `json:"id"`
		Nombre string `json:"nombre"`
	}](ctx, client, baseURL+"/api/patients", token)
	if err != nil {
		log.Fatalf("list patients: %v", err)
	}
	if len(patients) == 0 {
		log.Fatal("no patients in registry, nothing to smoke test against")
	}
	patient := patients[0]
	log.Printf("patient: %d (%s)", patient.ID, patient.Nombre)

	study, err := uploadStudy(ctx, client, baseURL, token, patient.ID)
	if err != nil {
		log.Fatalf("upload study: %v", err)
	}
	if !study.CanDelete {
		log.Fatalf("fresh study %d reported canDelete=false", study.ID)
	}
	log.Printf("uploaded study %d as %s", study.ID, study.Ruta)

	studies, err := getJSON[[]struct {
		ID int64 `json:"id"`
	}](ctx, client, fmt.Sprintf("%s/api/patients/%d/studies", baseURL, patient.ID), token)
	if err != nil {
		log.Fatalf("list studies: %v", err)
	}
	found := false
	for _, s := range studies {
		if s.ID == study.ID {
			found = true
		}
	}
	if !found {
		log.Fatalf("uploaded study %d missing from listing", study.ID)
	}

	if err := deleteStudy(ctx, client, baseURL, token, study.ID); err != nil {
		log.Fatalf("delete study: %v", err)
	}
	log.Printf("deleted study %d, smoke test passed", study.ID)
}

func login(ctx context.Context, client *http.Client, baseURL, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

type studyResult struct {
	ID        int64  `json:"id"`
	Nombre    string `json:"nombre"`
	Ruta      string `json:"ruta"`
	CanDelete bool   `json:"canDelete"`
}

func uploadStudy(ctx context.Context, client *http.Client, baseURL, token string, patientID int64) (studyResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "smoke test.dcm")
	if err != nil {
		return studyResult{}, err
	}
	if _, err := part.Write([]byte("smoke-test-payload")); err != nil {
		return studyResult{}, err
	}
	if err := mw.Close(); err != nil {
		return studyResult{}, err
	}

	url := fmt.Sprintf("%s/api/patients/%d/studies", baseURL, patientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return studyResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setAuth(req, token)

	resp, err := client.Do(req)
	if err != nil {
		return studyResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return studyResult{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var out studyResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return studyResult{}, err
	}
	return out, nil
}

func deleteStudy(ctx context.Context, client *http.Client, baseURL, token string, studyID int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/api/studies/%d", baseURL, studyID), nil)
	if err != nil {
		return err
	}
	setAuth(req, token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func getJSON[T any](ctx context.Context, client *http.Client, url, token string) (T, error) {
	var out T
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return out, err
	}
	setAuth(req, token)

	resp, err := client.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func setAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
