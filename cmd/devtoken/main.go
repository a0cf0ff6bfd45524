// Command devtoken emite un JWT firmado con JWT_SECRET para probar la API en local.
// Los tokens de producción los emite el servicio de identidad con el mismo secreto compartido.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

func main() {
	userID := flag.String("user", "dev-user", "user_id del token")
	storeID := flag.String("store", "store-1", "store_id del token")
	role := flag.String("role", "admin", "admin | bodeguero | vendedor")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	id := jwt.Identity{UserID: *userID, StoreID: *storeID, Role: *role}
	tok, err := jwt.Generate(cfg.JWT.Secret, id, cfg.JWT.Issuer, time.Duration(cfg.JWT.Expiration)*time.Minute)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generar token:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
