package cmd

import (
	"fmt"
)

// Completion outputs shell completion scripts
func Completion(shell string) error {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		return fmt.Errorf("unknown shell: %s (supported: bash, zsh, fish)", shell)
	}
	return nil
}

const bashCompletion = `_pwvault() {
    local cur prev words cword
    _init_completion || return

    local commands="init add get ls rm edit passwd save-as mv gen audit status history import keyring help completion"
    local global="-f --vault --debug --log-level --idle-timeout --history"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    case "$prev" in
        -f|--vault)
            _filedir
            return
            ;;
    esac

    local cmd="${words[1]}"
    case "$cmd" in
        init|passwd)
            COMPREPLY=($(compgen -W "--strong $global" -- "$cur"))
            ;;
        save-as|mv)
            COMPREPLY=($(compgen -W "--strong --move $global" -- "$cur"))
            _filedir
            ;;
        add|edit)
            COMPREPLY=($(compgen -W "--title --username --email --url --category --notes --favorite -g --generate -p --secret -l --length --no-symbols $global" -- "$cur"))
            ;;
        get)
            COMPREPLY=($(compgen -W "-s --show --secret-only $global" -- "$cur"))
            ;;
        ls)
            COMPREPLY=($(compgen -W "-c --category $global" -- "$cur"))
            ;;
        rm)
            COMPREPLY=($(compgen -W "--force $global" -- "$cur"))
            ;;
        gen)
            COMPREPLY=($(compgen -W "-l --length -n --count --no-upper --no-lower --no-digits --no-symbols" -- "$cur"))
            ;;
        history)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "ls diff restore prune" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "--force --keep $global" -- "$cur"))
            fi
            ;;
        import)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "jvlt kdbx" -- "$cur"))
            else
                _filedir
            fi
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
        *)
            COMPREPLY=($(compgen -W "$global" -- "$cur"))
            ;;
    esac
}

complete -F _pwvault pwvault
`

const zshCompletion = `#compdef pwvault

_pwvault() {
    local -a commands
    commands=(
        'init:Create a new vault'
        'add:Add an entry'
        'get:Show an entry'
        'ls:List entries'
        'rm:Remove entries'
        'edit:Change an entry'
        'passwd:Change the master passphrase'
        'save-as:Write the vault to a new file'
        'mv:Move the vault to a new file'
        'gen:Generate a password'
        'audit:Report weak, reused and old secrets'
        'status:Show vault file details'
        'history:List, diff, restore or prune snapshots'
        'import:Import a JVLT or KeePass file'
        'keyring:Manage passphrase in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    local -a global
    global=(
        '(-f --vault)'{-f,--vault}'[Vault file]:file:_files'
        '--debug[Enable debug logging]'
        '--log-level[Log level]:level:(debug info warn error)'
        '--idle-timeout[Idle lock timeout]:duration:'
        '--history[Snapshots to keep]:count:'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'pwvault commands' commands
            ;;
        args)
            case "${words[2]}" in
                init|passwd)
                    _arguments $global '--strong[Use stronger KDF costs]'
                    ;;
                save-as|mv)
                    _arguments $global '--strong[Use stronger KDF costs]' '--move[Remove the old file]' '*:path:_files'
                    ;;
                add|edit)
                    _arguments $global \
                        '--title[Entry title]:title:' \
                        '--username[User name]:username:' \
                        '--email[Email]:email:' \
                        '--url[URL]:url:' \
                        '--category[Category]:category:' \
                        '--notes[Notes]:notes:' \
                        '--favorite[Mark as favorite]' \
                        '(-g --generate)'{-g,--generate}'[Generate the secret]' \
                        '(-l --length)'{-l,--length}'[Generated length]:length:'
                    ;;
                get)
                    _arguments $global '(-s --show)'{-s,--show}'[Show the secret]' '--secret-only[Print only the secret]'
                    ;;
                ls)
                    _arguments $global '(-c --category)'{-c,--category}'[Only this category]:category:'
                    ;;
                rm)
                    _arguments $global '--force[Do not ask]'
                    ;;
                gen)
                    _arguments \
                        '(-l --length)'{-l,--length}'[Length]:length:' \
                        '(-n --count)'{-n,--count}'[How many]:count:' \
                        '--no-upper[No upper case]' \
                        '--no-lower[No lower case]' \
                        '--no-digits[No digits]' \
                        '--no-symbols[No symbols]'
                    ;;
                history)
                    _values 'subcommand' ls diff restore prune
                    ;;
                import)
                    _arguments '1:format:(jvlt kdbx)' '2:file:_files'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'pwvault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
                *)
                    _arguments $global
                    ;;
            esac
            ;;
    esac
}

_pwvault "$@"
`

const fishCompletion = `# pwvault fish completions

set -l commands init add get ls rm edit passwd save-as mv gen audit status history import keyring help completion

complete -c pwvault -f

# Commands
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a new vault'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a add -d 'Add an entry'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a get -d 'Show an entry'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List entries'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove entries'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a edit -d 'Change an entry'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change master passphrase'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a save-as -d 'Write vault to a new file'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a mv -d 'Move vault to a new file'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a gen -d 'Generate a password'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a audit -d 'Audit secrets'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault file details'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a history -d 'Manage snapshots'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import JVLT or KeePass'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrase in OS keyring'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c pwvault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# global flags
complete -c pwvault -s f -l vault -r -F -d 'Vault file'
complete -c pwvault -l debug -d 'Enable debug logging'
complete -c pwvault -l log-level -x -a "debug info warn error" -d 'Log level'

# entry flags
complete -c pwvault -n "__fish_seen_subcommand_from add edit" -l title -x -d 'Entry title'
complete -c pwvault -n "__fish_seen_subcommand_from add edit" -l username -x -d 'User name'
complete -c pwvault -n "__fish_seen_subcommand_from add edit" -l category -x -d 'Category'
complete -c pwvault -n "__fish_seen_subcommand_from add edit" -s g -l generate -d 'Generate the secret'
complete -c pwvault -n "__fish_seen_subcommand_from get" -s s -l show -d 'Show the secret'

# subcommands
complete -c pwvault -n "__fish_seen_subcommand_from history" -a "ls diff restore prune"
complete -c pwvault -n "__fish_seen_subcommand_from import" -a "jvlt kdbx"
complete -c pwvault -n "__fish_seen_subcommand_from import" -F
complete -c pwvault -n "__fish_seen_subcommand_from keyring" -a "save delete status"
complete -c pwvault -n "__fish_seen_subcommand_from help" -a "$commands"
complete -c pwvault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
