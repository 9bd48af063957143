package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"callboard/internal/ami"
	"callboard/internal/api"
	"callboard/internal/ari"
	"callboard/internal/auth"
	"callboard/internal/config"
	"callboard/internal/database"
	"callboard/internal/directory"
	"callboard/internal/state"
	"callboard/internal/websocket"
)

const defaultConfigPath = "/etc/callboard/callboard.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		cmdStart()
	case "operator":
		cmdOperator()
	case "user":
		cmdUser()
	case "status":
		cmdStatus()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Callboard - Call Center Supervision Backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  callboard start                        Start the full service")
	fmt.Println("  callboard operator add <name> <ext>    Bind an operator to an extension")
	fmt.Println("  callboard operator list                List operator bindings")
	fmt.Println("  callboard operator delete <id>         Remove an operator binding")
	fmt.Println("  callboard user add <username> <role>   Create a dashboard account")
	fmt.Println("  callboard status                       Show service status hints")
	fmt.Println()
}

func loadConfig() *config.Config {
	configPath := os.Getenv("CALLBOARD_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[Main] Error loading configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Main] Invalid configuration: %v", err)
	}
	return cfg
}

func openRepository(cfg *config.Config) (*database.Connection, *database.Repository) {
	dbConn, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("[Main] Error connecting to database: %v", err)
	}
	return dbConn, database.NewRepository(dbConn)
}

func cmdStart() {
	log.Println("[Main] Callboard Service v1.0")
	log.Println("[Main] Starting services...")

	cfg := loadConfig()

	dbConn, repo := openRepository(cfg)
	defer dbConn.Close()
	log.Println("[Main] ✓ Database connected")

	ariClient := ari.NewClient(cfg.ARI)
	engine := state.NewEngine(ariClient)
	log.Println("[Main] ✓ State engine ready")

	amiClient := ami.NewClient(cfg.AMI)
	dir := directory.NewService(amiClient)
	log.Println("[Main] ✓ Directory service ready")

	hub := websocket.NewHub()
	go hub.Run()
	log.Println("[Main] ✓ WebSocket hub started")

	var poller *state.Poller
	if cfg.Poller.Enabled {
		interval := time.Duration(cfg.Poller.Interval) * time.Second
		poller = state.NewPoller(engine, repo, hub, interval)
		poller.Start()
		defer poller.Stop()
	}

	tokens := auth.NewService(cfg.Auth)
	apiServer := api.NewServer(cfg, repo, engine, dir, hub, tokens)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Fatalf("[Main] Error starting API: %v", err)
		}
	}()
	log.Println("[Main] ✓ API REST server started")

	log.Println("[Main] ========================================")
	log.Printf("[Main] API REST listening on %s", cfg.API.Address())
	log.Println("[Main] Service started. Press Ctrl+C to stop")
	log.Println("[Main] ========================================")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("[Main] Stopping service...")
}

func cmdOperator() {
	if len(os.Args) < 3 {
		fmt.Println("Usage:")
		fmt.Println("  callboard operator add <name> <extension>")
		fmt.Println("  callboard operator list")
		fmt.Println("  callboard operator delete <id>")
		os.Exit(1)
	}

	cfg := loadConfig()
	dbConn, repo := openRepository(cfg)
	defer dbConn.Close()

	switch os.Args[2] {
	case "add":
		if len(os.Args) < 5 {
			fmt.Println("Usage: callboard operator add <name> <extension>")
			os.Exit(1)
		}
		o := &database.Operator{Name: os.Args[3], Extension: os.Args[4]}
		if err := repo.CreateOperator(o); err != nil {
			fmt.Printf("Error creating operator: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Operator #%d '%s' bound to extension %s\n", o.ID, o.Name, o.Extension)

	case "list":
		operators, err := repo.ListOperators()
		if err != nil {
			fmt.Printf("Error listing operators: %v\n", err)
			os.Exit(1)
		}
		if len(operators) == 0 {
			fmt.Println("No operators configured")
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEXTENSION\tCREATED")
		fmt.Fprintln(w, "---\t----\t---------\t-------")
		for _, o := range operators {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", o.ID, o.Name, o.Extension, o.CreatedAt.Format(time.DateTime))
		}
		w.Flush()

	case "delete":
		if len(os.Args) < 4 {
			fmt.Println("Usage: callboard operator delete <id>")
			os.Exit(1)
		}
		id, _ := strconv.Atoi(os.Args[3])
		if err := repo.DeleteOperator(id); err != nil {
			fmt.Printf("Error deleting operator: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Operator #%d deleted\n", id)

	default:
		fmt.Printf("Unknown subcommand: %s\n", os.Args[2])
		os.Exit(1)
	}
}

func cmdUser() {
	if len(os.Args) < 3 {
		fmt.Println("Usage:")
		fmt.Println("  callboard user add <username> <role>")
		fmt.Println("  callboard user list")
		os.Exit(1)
	}

	cfg := loadConfig()
	dbConn, repo := openRepository(cfg)
	defer dbConn.Close()

	switch os.Args[2] {
	case "add":
		if len(os.Args) < 5 {
			fmt.Println("Usage: callboard user add <username> <role>")
			os.Exit(1)
		}
		password := os.Getenv("CALLBOARD_NEW_PASSWORD")
		if password == "" {
			fmt.Println("Error: set CALLBOARD_NEW_PASSWORD for the new account")
			os.Exit(1)
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			fmt.Printf("Error hashing password: %v\n", err)
			os.Exit(1)
		}
		u := &database.User{Username: os.Args[3], PasswordHash: hash, Role: os.Args[4]}
		if err := repo.CreateUser(u); err != nil {
			fmt.Printf("Error creating user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ User #%d '%s' created (role %s)\n", u.ID, u.Username, u.Role)

	case "list":
		users, err := repo.ListUsers()
		if err != nil {
			fmt.Printf("Error listing users: %v\n", err)
			os.Exit(1)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tFULL NAME")
		fmt.Fprintln(w, "---\t--------\t----\t---------")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.FullName)
		}
		w.Flush()

	default:
		fmt.Printf("Unknown subcommand: %s\n", os.Args[2])
		os.Exit(1)
	}
}

func cmdStatus() {
	fmt.Println("Callboard Service Status")
	fmt.Println("========================")
	fmt.Println()
	fmt.Println("To check the service:")
	fmt.Println("  systemctl status callboard")
	fmt.Println()
	fmt.Println("To follow logs:")
	fmt.Println("  journalctl -u callboard -f")
	fmt.Println()
	fmt.Println("To check the REST API:")
	fmt.Println("  curl http://localhost:8080/health")
}
