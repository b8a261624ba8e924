package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/cipherbox/cmd"
	"github.com/illarion/cipherbox/internal/config"
	"github.com/illarion/cipherbox/internal/crypto"
	"github.com/illarion/cipherbox/internal/logging"
	"github.com/illarion/cipherbox/internal/passwords"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
		return
	case "completion":
		runCompletion(os.Args[2:])
		return
	}

	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	cmd.Configure(cfg, logger)

	args := os.Args[2:]
	switch os.Args[1] {
	case "init":
		runInit(args)
	case "put":
		runPut(ctx, args)
	case "get":
		runGet(ctx, args)
	case "rm":
		runRm(ctx, args)
	case "ls":
		runLs(ctx, args)
	case "status":
		runStatus(ctx, args)
	case "diff":
		runDiff(ctx, args)
	case "export":
		runExport(ctx, args)
	case "import":
		runImport(ctx, args)
	case "passwd":
		runPasswd(args)
	case "compact":
		runCompact(ctx, args)
	case "keyring":
		runKeyring(args)
	case "hmac":
		runHMAC(args)
	case "derive":
		runDerive(args)
	case "otp":
		runOTP(ctx, args)
	case "password":
		runPassword(args)
	case "pem":
		runPEM(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// parse parses a command's flags and checks the positional argument count.
func parse(fs *flag.FlagSet, args []string, minArgs, maxArgs int) []string {
	pos, err := cmd.ParseArgs(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if len(pos) < minArgs || (maxArgs >= 0 && len(pos) > maxArgs) {
		fmt.Fprintf(os.Stderr, "Error: wrong number of arguments\n\n")
		printCommandHelp(fs.Name())
		os.Exit(1)
	}
	return pos
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cipherID := fs.String("cipher", "", "Cipher id (default from config)")
	iterations := fs.Int("iterations", 0, "PBKDF2 iterations (default from config)")
	parse(fs, args, 0, 0)

	cmd.Init(*cipherID, *iterations)
}

func runPut(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	typ := fs.String("type", cmd.TypeString, "Value type: string, int, float or json")
	pos := parse(fs, args, 2, 2)

	cmd.Put(ctx, pos[0], pos[1], *typ)
}

func runGet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	pos := parse(fs, args, 1, 1)

	cmd.Get(ctx, pos[0])
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	pos := parse(fs, args, 0, -1)

	cmd.Remove(ctx, pos)
}

func runLs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	parse(fs, args, 0, 0)

	cmd.Ls(ctx)
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parse(fs, args, 0, 0)

	cmd.Status(ctx)
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	typ := fs.String("type", cmd.TypeString, "Candidate type: string, int, float or json")
	pos := parse(fs, args, 2, 2)

	cmd.Diff(ctx, pos[0], pos[1], *typ)
}

func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	pos := parse(fs, args, 1, 2)

	path := ""
	if len(pos) == 2 {
		path = pos[1]
	}
	cmd.Export(ctx, pos[0], path)
}

func runImport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	pos := parse(fs, args, 2, 2)

	cmd.Import(ctx, pos[0], pos[1])
}

func runPasswd(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parse(fs, args, 0, 0)

	cmd.Passwd()
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parse(fs, args, 0, 0)

	cmd.Compact(ctx)
}

func runKeyring(args []string) {
	fs := flag.NewFlagSet("keyring", flag.ExitOnError)
	pos := parse(fs, args, 1, 1)

	switch pos[0] {
	case "save":
		cmd.KeyringSave()
	case "delete":
		cmd.KeyringDelete()
	case "status":
		cmd.KeyringStatus()
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring subcommand: %s\n", pos[0])
		printCommandHelp("keyring")
		os.Exit(1)
	}
}

func runHMAC(args []string) {
	fs := flag.NewFlagSet("hmac", flag.ExitOnError)
	algo := fs.String("algo", "sha256", "Digest algorithm")
	pos := parse(fs, args, 1, 1)

	cmd.HMAC(*algo, pos[0])
}

func runDerive(args []string) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	algo := fs.String("algo", "sha256", "Digest algorithm")
	iterations := fs.Int("iterations", 10000, "PBKDF2 iterations")
	pos := parse(fs, args, 1, 1)

	cmd.Derive(*algo, pos[0], *iterations)
}

func runOTP(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("otp", flag.ExitOnError)
	pos := parse(fs, args, 1, 1)

	cmd.OTP(ctx, pos[0])
}

func runPassword(args []string) {
	fs := flag.NewFlagSet("password", flag.ExitOnError)
	length := fs.Int("length", passwords.DefaultLength, "Password length")
	classes := fs.Int("classes", 4, "Required character classes (0-4)")
	count := fs.Int("count", 1, "Number of passwords")
	parse(fs, args, 0, 0)

	cmd.Password(*length, *classes, *count)
}

func runPEM(args []string) {
	fs := flag.NewFlagSet("pem", flag.ExitOnError)
	typ := fs.String("type", "", "Block type for encode, e.g. CERTIFICATE")
	crlf := fs.Bool("crlf", false, "Use CRLF line endings for encode")
	typeOnly := fs.Bool("print-type", false, "Only print the block type for decode")
	pos := parse(fs, args, 2, 2)

	switch pos[0] {
	case "encode":
		cmd.PEMEncode(pos[1], *typ, *crlf)
	case "decode":
		cmd.PEMDecode(pos[1], *typeOnly)
	default:
		fmt.Fprintf(os.Stderr, "Unknown pem subcommand: %s\n", pos[0])
		printCommandHelp("pem")
		os.Exit(1)
	}
}

func runCompletion(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: cipherbox completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("cipherbox - Typed, password-protected secret storage")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cipherbox <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a .cipherbox vault in current directory")
	fmt.Println("  put         Store a secret")
	fmt.Println("  get         Print a secret")
	fmt.Println("  rm          Remove secrets from the vault")
	fmt.Println("  ls          List secret names")
	fmt.Println("  status      Show comprehensive vault status")
	fmt.Println("  diff        Compare a stored secret with a candidate value")
	fmt.Println("  export      Write a secret to a file")
	fmt.Println("  import      Store a file as a secret")
	fmt.Println("  passwd      Change vault password")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  keyring     Manage the vault password in the OS keyring")
	fmt.Println("  hmac        Keyed digest using the vault key")
	fmt.Println("  derive      PBKDF2 output salted with the vault key")
	fmt.Println("  otp         Print the current TOTP code for a stored seed")
	fmt.Println("  password    Generate random passwords")
	fmt.Println("  pem         Convert between DER and PEM")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cipherbox init                          # Create new vault")
	fmt.Println("  cipherbox put db_password hunter2       # Store a string")
	fmt.Println("  cipherbox put --type json db '{\"port\": 5432}'")
	fmt.Println("  cipherbox get db_password               # Print a secret")
	fmt.Println("  cipherbox status                        # Check vault status")
	fmt.Println()
	fmt.Println("Use 'cipherbox help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("cipherbox init [--cipher <id>] [--iterations <n>]")
		fmt.Println()
		fmt.Println("Creates a .cipherbox vault file in the current directory.")
		fmt.Println("Prompts for a password that will be used for encryption.")
		fmt.Println("The password is not stored anywhere - you must remember it.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Printf("  --cipher       Cipher id, 256-bit only (default %s)\n", crypto.DefaultCipher)
		fmt.Printf("  --iterations   PBKDF2 iterations (default %d)\n", crypto.DefaultIters)
	case "put":
		fmt.Println("cipherbox put [--type string|int|float|json] <name> <value|->")
		fmt.Println()
		fmt.Println("Encrypts and stores a value under name, replacing any previous value.")
		fmt.Println("A value of '-' is read from stdin. Use '--' before values that start with '-'.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  cipherbox put api_key sk-123")
		fmt.Println("  cipherbox put --type int retries 3")
		fmt.Println("  cipherbox put --type json db '{\"host\": \"db\", \"port\": 5432}'")
		fmt.Println("  cat key.pem | cipherbox put tls_key -")
	case "get":
		fmt.Println("cipherbox get <name>")
		fmt.Println()
		fmt.Println("Decrypts a secret and prints it to stdout. Strings are printed verbatim,")
		fmt.Println("other values as text.")
	case "rm":
		fmt.Println("cipherbox rm <name> [name...]")
		fmt.Println()
		fmt.Println("Removes secrets from the vault. Nothing is removed if any name is missing.")
	case "ls":
		fmt.Println("cipherbox ls")
		fmt.Println()
		fmt.Println("Lists secret names, one per line. Does not require a password.")
	case "status":
		fmt.Println("cipherbox status")
		fmt.Println()
		fmt.Println("Shows comprehensive vault status including:")
		fmt.Println("  - Cipher and key derivation settings")
		fmt.Println("  - Secret count, types and sizes")
		fmt.Println("  - Exported plaintext files and their git state")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "diff":
		fmt.Println("cipherbox diff [--type string|int|float|json] <name> <value|->")
		fmt.Println()
		fmt.Println("Shows a unified diff from the stored value to the candidate.")
	case "export":
		fmt.Println("cipherbox export <name> [path]")
		fmt.Println()
		fmt.Println("Writes a decrypted secret to a file inside the vault directory")
		fmt.Println("(mode 0600). The path defaults to the secret name and is shown by status.")
	case "import":
		fmt.Println("cipherbox import <name> <path>")
		fmt.Println()
		fmt.Println("Stores the contents of a file inside the vault directory as a string secret.")
	case "passwd":
		fmt.Println("cipherbox passwd")
		fmt.Println()
		fmt.Println("Changes the vault password.")
		fmt.Println("Requires both the current and new passwords.")
		fmt.Println("Re-encrypts all secrets with the new password.")
	case "compact":
		fmt.Println("cipherbox compact")
		fmt.Println()
		fmt.Println("Compacts the vault database to reclaim unused disk space.")
		fmt.Println("This is automatically done after 'rm' and 'passwd' commands,")
		fmt.Println("but can be run manually if needed.")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "keyring":
		fmt.Println("cipherbox keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Stores the vault password in the OS keyring so later commands")
		fmt.Println("do not prompt for it.")
	case "hmac":
		fmt.Println("cipherbox hmac [--algo <name>] <data|->")
		fmt.Println()
		fmt.Println("Prints the hex HMAC of data keyed by the vault master key.")
		fmt.Printf("Algorithms: %v\n", crypto.SupportedHashAlgos())
	case "derive":
		fmt.Println("cipherbox derive [--algo <name>] [--iterations <n>] <data|->")
		fmt.Println()
		fmt.Println("Prints hex PBKDF2 output for data, salted with the vault master key.")
	case "otp":
		fmt.Println("cipherbox otp <name>")
		fmt.Println()
		fmt.Println("Prints the current time-based one-time code for a secret holding a")
		fmt.Println("base32 seed or an otpauth://totp/ URL.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  cipherbox put github_2fa JBSWY3DPEHPK3PXP")
		fmt.Println("  cipherbox otp github_2fa")
	case "password":
		fmt.Println("cipherbox password [--length <n>] [--classes <0-4>] [--count <n>]")
		fmt.Println()
		fmt.Println("Generates random printable ASCII passwords. --classes requires that many")
		fmt.Println("of lower case, upper case, digits and symbols to appear.")
	case "pem":
		fmt.Println("cipherbox pem encode --type <TYPE> [--crlf] <der-file>")
		fmt.Println("cipherbox pem decode [--print-type] <pem-file>")
		fmt.Println()
		fmt.Println("Reframes DER bytes as PEM text and back. Decoded DER is written to stdout.")
	case "completion":
		fmt.Println("cipherbox completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(cipherbox completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(cipherbox completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  cipherbox completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
