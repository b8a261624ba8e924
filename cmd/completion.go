package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_cipherbox() {
    local cur prev words cword
    _init_completion || return

    local commands="init put get rm ls status diff export import passwd compact keyring hmac derive otp password pem help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        get|rm|diff|export|otp)
            if [[ $cword -eq 2 || "$cmd" == rm ]]; then
                local names
                names=$(cipherbox ls 2>/dev/null)
                COMPREPLY=($(compgen -W "$names" -- "$cur"))
            elif [[ "$cmd" == export ]]; then
                _filedir
            fi
            ;;
        put)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--type" -- "$cur"))
            elif [[ "$prev" == --type ]]; then
                COMPREPLY=($(compgen -W "string int float json" -- "$cur"))
            fi
            ;;
        import|pem)
            _filedir
            ;;
        init)
            COMPREPLY=($(compgen -W "--cipher --iterations" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _cipherbox cipherbox
`

const zshCompletion = `#compdef cipherbox

_cipherbox() {
    local -a commands
    commands=(
        'init:Create a vault in current directory'
        'put:Store a secret'
        'get:Print a secret'
        'rm:Remove secrets from the vault'
        'ls:List secret names'
        'status:Show comprehensive vault status'
        'diff:Compare a secret with a candidate value'
        'export:Write a secret to a file'
        'import:Store a file as a secret'
        'passwd:Change vault password'
        'compact:Compact vault to reclaim disk space'
        'keyring:Manage password in OS keyring'
        'hmac:Keyed digest with the vault key'
        'derive:PBKDF2 output salted with the vault key'
        'otp:Print a TOTP code for a stored seed'
        'password:Generate random passwords'
        'pem:Convert between DER and PEM'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'cipherbox commands' commands
            ;;
        args)
            case "${words[2]}" in
                get|rm|diff|export|otp)
                    _arguments '*:secret:_cipherbox_secrets'
                    ;;
                import|pem)
                    _files
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'cipherbox commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_cipherbox_secrets() {
    local -a names
    names=(${(f)"$(cipherbox ls 2>/dev/null)"})
    _describe -t names 'secrets' names
}

_cipherbox "$@"
`

const fishCompletion = `# cipherbox fish completions

set -l commands init put get rm ls status diff export import passwd compact keyring hmac derive otp password pem help completion

complete -c cipherbox -f

# Commands
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a vault'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a put -d 'Store a secret'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a get -d 'Print a secret'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove secrets'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List secret names'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault status'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare a secret'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a export -d 'Write a secret to a file'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a import -d 'Store a file as a secret'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change vault password'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a hmac -d 'Keyed digest'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a derive -d 'PBKDF2 derivation'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a otp -d 'TOTP code'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a password -d 'Generate passwords'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a pem -d 'DER/PEM conversion'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c cipherbox -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# secret names
complete -c cipherbox -n "__fish_seen_subcommand_from get rm diff export otp" -a "(cipherbox ls 2>/dev/null)"

# value types
complete -c cipherbox -n "__fish_seen_subcommand_from put diff" -l type -a "string int float json"

# files
complete -c cipherbox -n "__fish_seen_subcommand_from import pem" -F

# keyring subcommands
complete -c cipherbox -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c cipherbox -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c cipherbox -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
