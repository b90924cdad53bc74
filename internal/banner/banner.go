// Package banner holds the startup banner printed in table mode.
package banner

const art = `
████████╗██╗██████╗ ███████╗
╚══██╔══╝██║██╔══██╗██╔════╝
   ██║   ██║██║  ██║█████╗
   ██║   ██║██║  ██║██╔══╝
   ██║   ██║██████╔╝███████╗
   ╚═╝   ╚═╝╚═════╝ ╚══════╝
`

// Banner returns the ASCII art banner.
func Banner() string {
	return art
}
