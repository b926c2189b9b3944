// ABOUTME: Entry point for the woosync CLI
// ABOUTME: Routes store and sync commands and opens the local database
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/couponpress/woosync/cli"
	"github.com/couponpress/woosync/db"
)

const version = "0.2.0"

func main() {
	// .env is optional; environment variables win.
	_ = godotenv.Load()

	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/woosync/woosync.db)")
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("woosync version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	database, err := db.OpenDatabase(getDatabasePath(*dbPath))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "store":
		if len(commandArgs) == 0 {
			fmt.Println("Error: store requires a subcommand (add, list, remove)")
			printUsage()
			os.Exit(1)
		}
		var err error
		switch commandArgs[0] {
		case "add":
			err = cli.StoreAddCommand(database, commandArgs[1:])
		case "list":
			err = cli.StoreListCommand(database, commandArgs[1:])
		case "remove":
			err = cli.StoreRemoveCommand(database, commandArgs[1:])
		default:
			err = fmt.Errorf("unknown store subcommand: %s", commandArgs[0])
		}
		if err != nil {
			log.Fatalf("store %s failed: %v", commandArgs[0], err)
		}

	case "sync":
		if len(commandArgs) == 0 {
			fmt.Println("Error: sync requires a subcommand (coupons, deals, status)")
			printUsage()
			os.Exit(1)
		}
		var err error
		switch commandArgs[0] {
		case "coupons":
			err = cli.SyncCouponsCommand(database, commandArgs[1:])
		case "deals":
			err = cli.SyncDealsCommand(database, commandArgs[1:])
		case "status":
			err = cli.SyncStatusCommand(database, commandArgs[1:])
		default:
			err = fmt.Errorf("unknown sync subcommand: %s", commandArgs[0])
		}
		if err != nil {
			log.Fatalf("sync %s failed: %v", commandArgs[0], err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func getDatabasePath(override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(xdg.DataHome, "woosync", "woosync.db")
}

func printUsage() {
	fmt.Println(`woosync - WooCommerce coupon & deal synchronization

Usage:
  woosync store add --name NAME --url URL [--key KEY --secret SECRET] [--default-category ID]
  woosync store list
  woosync store remove --name NAME
  woosync sync coupons --store NAME [--timeout 15m]
  woosync sync deals --store NAME [--timeout 15m]
  woosync sync status

Flags:
  --version        Show version
  --db-path PATH   Database path (default: ~/.local/share/woosync/woosync.db)

Credentials may come from WOO_CONSUMER_KEY / WOO_CONSUMER_SECRET (or a .env file).`)
}
