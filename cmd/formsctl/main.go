// Command formsctl manages user profiles and issues bearer tokens for the branch forms service.
//
//	formsctl profile -user ana -name "Ana Cruz" -role approve -branch Cebu
//	formsctl token -user ana
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/garyjia/branch-forms/internal/config"
	"github.com/garyjia/branch-forms/internal/container"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	httpserver "github.com/garyjia/branch-forms/internal/interfaces/http"
	"github.com/garyjia/branch-forms/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "profile":
		err = runProfile(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "formsctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: formsctl <profile|token> [flags]")
}

func runProfile(args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	configPath := fs.String("config", "configs/config.yaml", "path to the YAML config file")
	userID := fs.String("user", "", "user id (token subject)")
	employeeID := fs.String("employee", "", "employee id")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "staff", "staff, approve, accomplish, accounting or viewer")
	branch := fs.String("branch", "", "branch")
	department := fs.String("department", "", "department")
	signature := fs.String("signature", "", "signature image reference")
	_ = fs.Parse(args)

	c, err := start(*configPath)
	if err != nil {
		return err
	}
	defer c.Close()

	profile := &entity.Profile{
		UserID:       *userID,
		EmployeeID:   *employeeID,
		Name:         *name,
		SignatureRef: *signature,
		Role:         *role,
		Branch:       *branch,
		Department:   *department,
	}
	ctx := context.Background()
	if existing, err := c.Services().Profiles.Get(ctx, *userID); err == nil {
		profile.CreatedAt = existing.CreatedAt
	}
	if err := c.Services().Profiles.Save(ctx, profile); err != nil {
		return err
	}

	fmt.Printf("saved profile %s (%s)\n", profile.UserID, profile.Actor().Role)
	return nil
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "configs/config.yaml", "path to the YAML config file")
	userID := fs.String("user", "", "user id (token subject)")
	_ = fs.Parse(args)

	if err := utils.ValidateUserID(*userID); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	token, err := httpserver.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Issue(*userID)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func start(configPath string) (*container.Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	c, err := container.NewContainer(cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}
	if err := c.Start(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}
