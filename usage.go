package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Println("pwvault - encrypted password vault for the terminal")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pwvault <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a new vault")
	fmt.Println("  add         Add an entry")
	fmt.Println("  get         Show an entry")
	fmt.Println("  ls          List entries")
	fmt.Println("  rm          Remove entries")
	fmt.Println("  edit        Change an entry")
	fmt.Println("  passwd      Change the master passphrase")
	fmt.Println("  save-as     Write the vault to a new file (mv moves it)")
	fmt.Println("  gen         Generate a password")
	fmt.Println("  audit       Report weak, reused and old secrets")
	fmt.Println("  status      Show vault file details (no passphrase needed)")
	fmt.Println("  history     List, diff, restore or prune snapshots")
	fmt.Println("  import      Import a JVLT or KeePass file")
	fmt.Println("  keyring     Manage the passphrase in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Global flags:")
	fmt.Println("  -f, --vault <file>        Vault file (default ~/.vault/vault.dat, env PWVAULT_PATH)")
	fmt.Println("  --debug                   Enable debug logging")
	fmt.Println("  --log-level <level>       debug, info, warn or error (env PWVAULT_LOG_LEVEL)")
	fmt.Println("  --idle-timeout <dur>      Lock after inactivity (env PWVAULT_IDLE_TIMEOUT)")
	fmt.Println("  --history <n>             Snapshots to keep, 0 disables (env PWVAULT_HISTORY)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pwvault init                          # Create a new vault")
	fmt.Println("  pwvault add --title Bank --username alice")
	fmt.Println("  pwvault add -g --title Mail           # Generate the secret")
	fmt.Println("  pwvault get --show bank")
	fmt.Println()
	fmt.Println("Set PWVAULT_PASSPHRASE to skip the passphrase prompt in scripts.")
	fmt.Println("Use 'pwvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("pwvault init [--strong]")
		fmt.Println()
		fmt.Println("Creates an empty vault at the vault path. Never overwrites an existing file.")
		fmt.Println("Prompts twice for the master passphrase. It is not stored anywhere.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --strong    Use 256 MiB Argon2id memory instead of 64 MiB")
	case "add":
		fmt.Println("pwvault add [flags] [title]")
		fmt.Println()
		fmt.Println("Adds an entry. The secret is prompted for without echo, or generated with -g.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --title, --username, --email, --url, --category, --notes <value>")
		fmt.Println("  --favorite              Mark as favorite")
		fmt.Println("  -g, --generate          Generate the secret")
		fmt.Println("  -l, --length <n>        Generated length (8-64, default 16)")
		fmt.Println("  --no-upper, --no-lower, --no-digits, --no-symbols")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  pwvault add --title Bank --username alice --category finance")
		fmt.Println("  pwvault add -g -l 24 Mail")
	case "get":
		fmt.Println("pwvault get [--show|--secret-only] <id|title>")
		fmt.Println()
		fmt.Println("Shows one entry. The query is an id, an id prefix of at least 4")
		fmt.Println("characters, or a title (case-insensitive).")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -s, --show       Show the secret instead of a mask")
		fmt.Println("  --secret-only    Print only the secret, for piping")
	case "ls", "list":
		fmt.Println("pwvault ls [-c <category>]")
		fmt.Println()
		fmt.Println("Lists entries sorted by title. Favorites are marked with *.")
	case "rm":
		fmt.Println("pwvault rm [--force] <id|title> [...]")
		fmt.Println()
		fmt.Println("Removes entries. Asks for each one unless --force is given.")
	case "edit":
		fmt.Println("pwvault edit [flags] <id|title>")
		fmt.Println()
		fmt.Println("Changes only the fields given as flags.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --title, --username, --email, --url, --category, --notes <value>")
		fmt.Println("  --favorite[=false]      Set or clear the favorite mark")
		fmt.Println("  -p, --secret            Prompt for a new secret")
		fmt.Println("  -g, --generate          Replace the secret with a generated one")
	case "passwd":
		fmt.Println("pwvault passwd [--strong]")
		fmt.Println()
		fmt.Println("Changes the master passphrase. The vault is re-encrypted under a key")
		fmt.Println("derived with a fresh salt. A keyring entry is updated if present.")
	case "save-as", "mv":
		fmt.Println("pwvault save-as [--strong] [--move] <path>")
		fmt.Println("pwvault mv [--strong] <path>")
		fmt.Println()
		fmt.Println("Writes the vault to a new file, sealed under a fresh salt with the passphrase")
		fmt.Println("you enter (it may differ from the current one). The target must not exist.")
		fmt.Println("mv and --move remove the old file afterwards. History stays with the old path.")
	case "gen":
		fmt.Println("pwvault gen [-l <length>] [-n <count>] [--no-upper] [--no-lower] [--no-digits] [--no-symbols]")
		fmt.Println()
		fmt.Println("Prints random passwords with at least one character of each selected class.")
		fmt.Println("Does not need a vault.")
	case "audit":
		fmt.Println("pwvault audit")
		fmt.Println()
		fmt.Println("Reports weak secrets (under 12 characters or fewer than 3 character")
		fmt.Println("classes), secrets shared by several entries, and secrets unchanged for")
		fmt.Println("180 days. Exits with status 1 when anything is found.")
	case "status":
		fmt.Println("pwvault status")
		fmt.Println()
		fmt.Println("Shows the vault id, format version, key derivation settings, keyring")
		fmt.Println("and history state. Does not require a passphrase.")
	case "history":
		fmt.Println("pwvault history ls")
		fmt.Println("pwvault history diff <from> [to]")
		fmt.Println("pwvault history restore [--force] <id>")
		fmt.Println("pwvault history prune [--keep <n>]")
		fmt.Println()
		fmt.Println("Every save records the previous vault file as a snapshot in")
		fmt.Println("<vault>.history. diff compares two snapshots, or a snapshot with the")
		fmt.Println("current vault. A restored snapshot opens with the passphrase it had")
		fmt.Println("when it was recorded.")
	case "import":
		fmt.Println("pwvault import <jvlt|kdbx> <file>")
		fmt.Println()
		fmt.Println("Copies entries from a JVLT vault of the old desktop app, or from a")
		fmt.Println("KeePass database. Entries whose id is already present are skipped.")
	case "keyring":
		fmt.Println("pwvault keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Stores the master passphrase in the OS keyring, keyed by vault id, so")
		fmt.Println("commands stop prompting. save verifies the passphrase first.")
	case "completion":
		fmt.Println("pwvault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(pwvault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(pwvault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  pwvault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
