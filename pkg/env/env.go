package env

import (
	"encoding/json"
	"net/http"
	"os"
)

const unset = "unset"

// Set at startup from build info.
var Version = unset

// Deployment environment name, from ENVIRONMENT.
func Environment() string {
	if e := os.Getenv("ENVIRONMENT"); e != "" {
		return e
	}
	return "dev"
}

func VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{ // nolint:errcheck
		"version":     Version,
		"environment": Environment(),
	})
}

func IsProd() bool {
	return Version != unset && Environment() == "production"
}
