package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	serverURL   = flag.String("server", "http://localhost:8080", "Gateway base URL")
	userEmail   = flag.String("email", "sim@laundrotech.com", "Account email (registered if missing)")
	password    = flag.String("password", "simulator123", "Account password")
	address     = flag.String("address", "123 Main St, Springfield, IL", "Address to analyze")
	depth       = flag.Int("depth", 1, "Depth tier to purchase")
	interactive = flag.Bool("interactive", false, "Enable interactive mode")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	driver := NewFlowDriver(&FlowConfig{
		ServerURL: *serverURL,
		Email:     *userEmail,
		Password:  *password,
	}, logger)

	if err := driver.Authenticate(); err != nil {
		logger.Fatal("Failed to authenticate", zap.Error(err))
	}

	if *interactive {
		runInteractiveMode(driver, logger)
		return
	}

	// One-shot mode drives a full flow: session, preview, depth, purchase.
	fmt.Println("LaundroTech analysis flow driver")
	fmt.Printf("  Server:  %s\n", *serverURL)
	fmt.Printf("  Address: %s\n", *address)
	fmt.Printf("  Depth:   %d\n", *depth)
	fmt.Println()

	if err := driver.RunFlow(*address, *depth); err != nil {
		logger.Fatal("Flow failed", zap.Error(err))
	}
}

func runInteractiveMode(driver *FlowDriver, logger *zap.Logger) {
	fmt.Println("\nLaundroTech Flow Driver - Interactive Mode")
	fmt.Println("==========================================")
	fmt.Println("Commands:")
	fmt.Println("  new                 create a session")
	fmt.Println("  addr <address>      submit an address")
	fmt.Println("  depth <level>       select a depth tier")
	fmt.Println("  buy                 confirm the purchase")
	fmt.Println("  reset               reset the session")
	fmt.Println("  show                print the current session")
	fmt.Println("  quit                exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = strings.TrimSpace(parts[1])
		}

		var err error
		switch cmd {
		case "new":
			err = driver.CreateSession()
		case "addr":
			err = driver.SubmitAddress(arg)
		case "depth":
			var level int
			level, err = strconv.Atoi(arg)
			if err == nil {
				err = driver.SelectDepth(level)
			}
		case "buy":
			err = driver.ConfirmPurchase()
		case "reset":
			err = driver.Reset()
		case "show":
			driver.PrintSession()
		case "quit", "exit":
			return
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
			continue
		}

		if err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}
