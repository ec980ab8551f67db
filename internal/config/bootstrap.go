package config

import (
    "log"
    "os"
    "strings"
)

// BootstrapConfig provisions a fresh deployment: an ADMIN account so the
// admin routes are reachable, and optionally a sample hotel catalog.
type BootstrapConfig struct {
    AdminName     string // display name of the bootstrap admin
    AdminEmail    string // empty disables the admin upsert
    AdminPassword string // required when AdminEmail is set, 8..72 bytes
    SeedHotels    bool   // insert sample hotels when the catalog is empty
}

func LoadBootstrapConfig() BootstrapConfig {
    c := BootstrapConfig{
        AdminName:     envStr("ADMIN_NAME", "Admin User"),
        AdminEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
        AdminPassword: os.Getenv("ADMIN_PASSWORD"),
        SeedHotels:    envBool("SEED_HOTELS", false),
    }
    if c.AdminEmail != "" && (len(c.AdminPassword) < 8 || len(c.AdminPassword) > 72) {
        log.Fatalf("ADMIN_PASSWORD must be 8 to 72 bytes when ADMIN_EMAIL is set")
    }
    return c
}
