package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/illarion/pwvault/cmd"
	"github.com/illarion/pwvault/internal/config"
	"github.com/illarion/pwvault/internal/generator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "add":
		runAdd(ctx, os.Args[2:])
	case "get":
		runGet(ctx, os.Args[2:])
	case "ls", "list":
		runLs(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "edit":
		runEdit(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "save-as", "mv":
		runSaveAs(ctx, os.Args[2:])
	case "gen":
		runGen(ctx, os.Args[2:])
	case "audit":
		runAudit(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "history":
		runHistory(ctx, os.Args[2:])
	case "import":
		runImport(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// command is a parsed flag set plus the global settings registered on it.
type command struct {
	fs     *flag.FlagSet
	global *config.Flags
}

func newCommand(name string) *command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &command{fs: fs, global: config.AddFlags(fs)}
}

// parse parses args and builds the app, exiting on bad input.
func (c *command) parse(args []string) *cmd.App {
	if err := c.fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	cfg, err := c.global.Load(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return cmd.NewApp(cfg, cfg.NewLogger(os.Stderr))
}

func check(err error) {
	if err != nil {
		cmd.HandleError(err)
	}
}

func needArgs(c *command, n int, usage string) {
	if c.fs.NArg() < n {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
}

// entryFlags registers the entry attribute flags shared by add and edit.
func entryFlags(c *command) func() cmd.EntryFields {
	title := c.fs.String("title", "", "Entry title")
	username := c.fs.String("username", "", "User name")
	email := c.fs.String("email", "", "Email address")
	url := c.fs.String("url", "", "URL")
	category := c.fs.String("category", "", "Category")
	notes := c.fs.String("notes", "", "Free-form notes")
	favorite := c.fs.Bool("favorite", false, "Mark as favorite")

	return func() cmd.EntryFields {
		var f cmd.EntryFields
		pick := func(name string, v *string) *string {
			if c.fs.Changed(name) {
				return v
			}
			return nil
		}
		f.Title = pick("title", title)
		f.Username = pick("username", username)
		f.Email = pick("email", email)
		f.URL = pick("url", url)
		f.Category = pick("category", category)
		f.Notes = pick("notes", notes)
		if c.fs.Changed("favorite") {
			f.Favorite = favorite
		}
		return f
	}
}

// generatorFlags registers the password generator flags.
func generatorFlags(c *command) func() generator.Options {
	length := c.fs.IntP("length", "l", generator.DefaultLength, "Generated password length")
	noUpper := c.fs.Bool("no-upper", false, "Exclude upper case letters")
	noLower := c.fs.Bool("no-lower", false, "Exclude lower case letters")
	noDigits := c.fs.Bool("no-digits", false, "Exclude digits")
	noSymbols := c.fs.Bool("no-symbols", false, "Exclude symbols")

	return func() generator.Options {
		return generator.Options{
			Length:  *length,
			Upper:   !*noUpper,
			Lower:   !*noLower,
			Digits:  !*noDigits,
			Symbols: !*noSymbols,
		}
	}
}

func runInit(_ context.Context, args []string) {
	c := newCommand("init")
	strong := c.fs.Bool("strong", false, "Use stronger (slower) key derivation costs")
	app := c.parse(args)
	defer app.Close()

	check(cmd.Init(app, *strong))
}

func runAdd(ctx context.Context, args []string) {
	c := newCommand("add")
	fields := entryFlags(c)
	gen := generatorFlags(c)
	generate := c.fs.BoolP("generate", "g", false, "Generate the secret instead of prompting")
	app := c.parse(args)
	defer app.Close()

	f := fields()
	if f.Title == nil && c.fs.NArg() > 0 {
		title := c.fs.Arg(0)
		f.Title = &title
	}
	check(cmd.Add(ctx, app, f, cmd.SecretSource{Generate: *generate, Gen: gen()}))
}

func runGet(ctx context.Context, args []string) {
	c := newCommand("get")
	show := c.fs.BoolP("show", "s", false, "Show the secret")
	secretOnly := c.fs.Bool("secret-only", false, "Print only the secret")
	app := c.parse(args)
	defer app.Close()

	needArgs(c, 1, "pwvault get [--show] <id|title>")
	check(cmd.Get(ctx, app, c.fs.Arg(0), *show, *secretOnly))
}

func runLs(ctx context.Context, args []string) {
	c := newCommand("ls")
	category := c.fs.StringP("category", "c", "", "Only list entries in this category")
	app := c.parse(args)
	defer app.Close()

	check(cmd.Ls(ctx, app, *category))
}

func runRm(ctx context.Context, args []string) {
	c := newCommand("rm")
	force := c.fs.Bool("force", false, "Remove without confirmation")
	app := c.parse(args)
	defer app.Close()

	needArgs(c, 1, "pwvault rm [--force] <id|title> [...]")
	check(cmd.Remove(ctx, app, c.fs.Args(), *force))
}

func runEdit(ctx context.Context, args []string) {
	c := newCommand("edit")
	fields := entryFlags(c)
	gen := generatorFlags(c)
	newSecret := c.fs.BoolP("secret", "p", false, "Prompt for a new secret")
	generate := c.fs.BoolP("generate", "g", false, "Replace the secret with a generated one")
	app := c.parse(args)
	defer app.Close()

	needArgs(c, 1, "pwvault edit [flags] <id|title>")
	check(cmd.Edit(ctx, app, c.fs.Arg(0), fields(), *newSecret || *generate,
		cmd.SecretSource{Generate: *generate, Gen: gen()}))
}

func runPasswd(ctx context.Context, args []string) {
	c := newCommand("passwd")
	strong := c.fs.Bool("strong", false, "Raise key derivation costs to the strong preset")
	app := c.parse(args)
	defer app.Close()

	check(cmd.Passwd(ctx, app, *strong))
}

func runSaveAs(ctx context.Context, args []string) {
	c := newCommand("save-as")
	strong := c.fs.Bool("strong", false, "Raise key derivation costs to the strong preset")
	move := c.fs.Bool("move", false, "Remove the old vault file afterwards")
	app := c.parse(args)
	defer app.Close()

	needArgs(c, 1, "pwvault save-as [--strong] [--move] <path>")
	check(cmd.SaveAs(ctx, app, c.fs.Arg(0), *strong, *move || os.Args[1] == "mv"))
}

func runGen(_ context.Context, args []string) {
	c := &command{fs: flag.NewFlagSet("gen", flag.ExitOnError)}
	gen := generatorFlags(c)
	count := c.fs.IntP("count", "n", 1, "Number of passwords")
	if err := c.fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	check(cmd.Gen(gen(), *count))
}

func runAudit(ctx context.Context, args []string) {
	c := newCommand("audit")
	app := c.parse(args)
	defer app.Close()

	check(cmd.Audit(ctx, app))
}

func runStatus(_ context.Context, args []string) {
	c := newCommand("status")
	app := c.parse(args)
	defer app.Close()

	check(cmd.Status(app))
}

func runHistory(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pwvault history <ls|diff|restore|prune>")
		os.Exit(1)
	}
	c := newCommand("history " + args[0])
	force := c.fs.Bool("force", false, "Restore without confirmation")
	keep := c.fs.Int("keep", 0, "Snapshots to keep when pruning")
	app := c.parse(args[1:])
	defer app.Close()

	switch args[0] {
	case "ls", "list":
		check(cmd.HistoryList(app))
	case "diff":
		needArgs(c, 1, "pwvault history diff <from> [to]")
		check(cmd.HistoryDiff(ctx, app, c.fs.Arg(0), c.fs.Arg(1)))
	case "restore":
		needArgs(c, 1, "pwvault history restore [--force] <id>")
		check(cmd.HistoryRestore(app, c.fs.Arg(0), *force))
	case "prune":
		check(cmd.HistoryPrune(app, *keep))
	default:
		fmt.Fprintf(os.Stderr, "Unknown history command: %s\n", args[0])
		os.Exit(1)
	}
}

func runImport(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pwvault import <jvlt|kdbx> <file>")
		os.Exit(1)
	}
	c := newCommand("import " + args[0])
	app := c.parse(args[1:])
	defer app.Close()

	needArgs(c, 1, "pwvault import <jvlt|kdbx> <file>")
	switch args[0] {
	case "jvlt":
		check(cmd.ImportJVLT(ctx, app, c.fs.Arg(0)))
	case "kdbx", "keepass":
		check(cmd.ImportKDBX(ctx, app, c.fs.Arg(0)))
	default:
		fmt.Fprintf(os.Stderr, "Unknown import format: %s\n", args[0])
		os.Exit(1)
	}
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pwvault keyring <save|delete|status>")
		os.Exit(1)
	}
	c := newCommand("keyring " + args[0])
	app := c.parse(args[1:])
	defer app.Close()

	switch args[0] {
	case "save":
		check(cmd.KeyringSave(ctx, app))
	case "delete":
		check(cmd.KeyringDelete(app))
	case "status":
		check(cmd.KeyringStatus(app))
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pwvault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	check(cmd.Completion(args[0]))
}
