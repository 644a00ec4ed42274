// issue-token mints a signed access token for a backend role. Used to
// provision collector devices and for local API testing.
//
// Usage:
//
//	API_SECRET=... go run ./cmd/issue-token --user u123 --name "Juan Pérez" --role recaudador
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/rutacoop/flota_backend/models"
	"bitbucket.org/rutacoop/flota_backend/utils"
)

func main() {
	user := flag.String("user", "", "User id embedded in the token. Required.")
	name := flag.String("name", "", "Display name embedded in the token.")
	role := flag.String("role", string(models.RolRecaudador), "Role: administrador, recaudador or consulta.")
	flag.Parse()

	if strings.TrimSpace(*user) == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		os.Exit(1)
	}

	switch models.RolUsuario(*role) {
	case models.RolAdministrador, models.RolRecaudador, models.RolConsulta:
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(1)
	}

	token, err := utils.JwtGenerate(strings.TrimSpace(*user), *name, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
