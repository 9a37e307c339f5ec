package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

// Prints an ADMIN access token signed with JWT_SECRET for use against
// the /api/admin endpoints.
func main() {
	var subject string
	var ttl time.Duration
	flag.StringVar(&subject, "sub", "operator", "token subject")
	flag.DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to ACCESS_TOKEN_TTL_MIN")
	flag.Parse()

	cfg, err := config.LoadToken()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if ttl <= 0 {
		ttl = cfg.AccessTTL
	}

	tok, err := utils.NewAccessToken(cfg.JWTSecret, subject, utils.RoleAdmin, ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
