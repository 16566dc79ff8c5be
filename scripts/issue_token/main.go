package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
)

type issued struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Role      string    `json:"role"`
	FacultyID string    `json:"facultyId,omitempty"`
}

func main() {
	userID := flag.String("user", "", "user id placed in the token subject")
	role := flag.String("role", string(models.RoleAdmin), "ADMIN or FACULTY")
	facultyID := flag.String("faculty", "", "faculty profile id (required for FACULTY)")
	ttl := flag.Duration("ttl", 0, "override the configured token lifetime")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lifetime := cfg.JWT.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	userRole := models.UserRole(strings.ToUpper(*role))
	if userRole != models.RoleAdmin && userRole != models.RoleFaculty {
		log.Fatalf("unknown role %q", *role)
	}

	auth := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		TokenTTL: lifetime,
	})
	token, expiresAt, err := auth.IssueToken(*userID, userRole, *facultyID)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(issued{Token: token, ExpiresAt: expiresAt, Role: string(userRole), FacultyID: *facultyID}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
