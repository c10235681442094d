// Command healthsync is an interactive terminal client for the HealthSync
// backend. It drives the account-access flow end to end: login,
// registration with email OTP, first-time location capture and password
// reset.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/healthsync/healthsync/authflow"
	"github.com/healthsync/healthsync/domain"
)

func main() {
	_ = godotenv.Load()

	base := os.Getenv("HEALTHSYNC_API")
	if base == "" {
		base = "http://localhost:8080"
	}
	stateDir := os.Getenv("HEALTHSYNC_STATE_DIR")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("state dir: %v", err)
		}
		stateDir = filepath.Join(home, ".healthsync")
	}

	store, err := authflow.NewSessionStore(stateDir)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}
	api := authflow.NewClient(base, store.Token)
	ctrl := authflow.NewController(api, store)

	ctx := context.Background()
	if err := ctrl.Resume(ctx); err != nil {
		log.Printf("resume: %v", err)
	}

	in := bufio.NewScanner(os.Stdin)
	fmt.Println("healthsync client - type 'help' for commands")
	for {
		printState(ctrl)
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		args := strings.Fields(line)
		switch args[0] {
		case "help":
			printHelp()
		case "quit", "exit":
			return
		case "login":
			if len(args) != 3 {
				fmt.Println("usage: login <email> <password>")
				continue
			}
			report(ctrl.SubmitLogin(ctx, args[1], args[2]))
		case "register":
			register(ctx, ctrl, in)
		case "otp":
			if len(args) != 2 {
				fmt.Println("usage: otp <code>")
				continue
			}
			report(ctrl.VerifyOTP(ctx, args[1]))
		case "resend":
			report(ctrl.ResendOTP(ctx))
		case "cancel":
			ctrl.CancelOTP()
		case "forgot":
			ctrl.StartPasswordReset()
			if len(args) == 2 {
				report(ctrl.SubmitResetEmail(ctx, args[1]))
			}
		case "reset-email":
			if len(args) != 2 {
				fmt.Println("usage: reset-email <email>")
				continue
			}
			report(ctrl.SubmitResetEmail(ctx, args[1]))
		case "new-password":
			if len(args) != 3 {
				fmt.Println("usage: new-password <password> <confirm>")
				continue
			}
			report(ctrl.SubmitNewPassword(ctx, args[1], args[2]))
		case "detect":
			report(ctrl.DetectLocation(ctx))
			if loc := ctrl.Location(); loc != nil {
				if rec := loc.Detected(); rec != nil {
					fmt.Printf("detected: %s, %s %s (%s)\n", rec.City, rec.State, rec.Pincode, rec.Country)
				}
				if loc.Reason() != "" {
					fmt.Println(loc.Reason())
				}
			}
		case "confirm":
			report(ctrl.ConfirmDetectedLocation(ctx))
		case "manual":
			manualLocation(ctx, ctrl, in)
		case "skip":
			ctrl.AbandonLocation(ctx)
		case "logout":
			ctrl.Logout(ctx)
		case "whoami":
			if sess := ctrl.Session(); sess != nil {
				fmt.Printf("%s <%s> role=%s\n", sess.Identity.Name, sess.Identity.Email, sess.Role)
			} else {
				fmt.Println("not signed in")
			}
		default:
			fmt.Println("unknown command, type 'help'")
		}
	}
}

func register(ctx context.Context, ctrl *authflow.Controller, in *bufio.Scanner) {
	ctrl.ShowRegister()
	creds := &domain.Credentials{
		Name:            prompt(in, "name"),
		Email:           prompt(in, "email"),
		Password:        prompt(in, "password"),
		ConfirmPassword: prompt(in, "confirm password"),
		Phone:           prompt(in, "phone"),
		DateOfBirth:     prompt(in, "date of birth (YYYY-MM-DD)"),
		Gender:          prompt(in, "gender"),
	}
	terms := prompt(in, "agree to terms? (y/n)") == "y"
	privacy := prompt(in, "agree to privacy policy? (y/n)") == "y"

	fieldErrs, err := ctrl.SubmitRegistration(ctx, creds, terms, privacy)
	if err != nil {
		fmt.Println(err)
		return
	}
	for field, msg := range fieldErrs {
		fmt.Printf("%s: %s\n", field, msg)
	}
}

func manualLocation(ctx context.Context, ctrl *authflow.Controller, in *bufio.Scanner) {
	fields := authflow.ManualFields{
		Address: prompt(in, "address"),
		City:    prompt(in, "city"),
		State:   prompt(in, "state"),
		Country: prompt(in, "country"),
		Pincode: prompt(in, "pincode"),
	}
	report(ctrl.SubmitManualLocation(ctx, fields))
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Printf("%s: ", label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func report(err error) {
	if err != nil {
		fmt.Println(err)
	}
}

func printState(ctrl *authflow.Controller) {
	fmt.Printf("[%s]", ctrl.State())
	if msg := ctrl.Err(); msg != "" {
		fmt.Printf(" %s", msg)
	}
	if ch := ctrl.Challenge(); ch != nil {
		if wait := ch.CooldownRemaining(); wait > 0 {
			fmt.Printf(" (resend in %ds)", wait)
		}
	}
	fmt.Println()
}

func printHelp() {
	fmt.Println(`commands:
  login <email> <password>       sign in
  register                       create an account (email OTP)
  otp <code>                     verify the emailed code
  resend                         resend the code
  cancel                         abandon the code entry step
  forgot [email]                 start a password reset
  reset-email <email>            submit the reset email
  new-password <pw> <confirm>    finish the password reset
  detect                         detect location via GPS
  confirm                        save the detected location
  manual                         enter location manually
  skip                           abandon location capture (signs out)
  logout                         sign out
  whoami                         show the current identity
  quit`)
}
