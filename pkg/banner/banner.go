package banner

import (
	"fmt"

	"sparkchat/pkg/config"
)

const banner = `
███████╗██████╗  █████╗ ██████╗ ██╗  ██╗ ██████╗██╗  ██╗ █████╗ ████████╗
██╔════╝██╔══██╗██╔══██╗██╔══██╗██║ ██╔╝██╔════╝██║  ██║██╔══██╗╚══██╔══╝
███████╗██████╔╝███████║██████╔╝█████╔╝ ██║     ███████║███████║   ██║
╚════██║██╔═══╝ ██╔══██║██╔══██╗██╔═██╗ ██║     ██╔══██║██╔══██║   ██║
███████║██║     ██║  ██║██║  ██║██║  ██╗╚██████╗██║  ██║██║  ██║   ██║
╚══════╝╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// Print writes the startup banner with the effective runtime settings.
func Print(cfg *config.Config, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", cfg.Addr())
	fmt.Printf("DB Path:  %s\n", cfg.Server.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Bot:      %v\n", cfg.Bot.Enabled)
	fmt.Printf("Retention: %v\n", cfg.Retention.Enabled)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/conversations/{userID} - Open a conversation (mutual follow required)")
	fmt.Println("GET  /v1/conversations          - List your conversations")
	fmt.Println("GET  /v1/conversations/{id}/messages - Conversation history")
	fmt.Println("POST /v1/messages               - Send a message")
	fmt.Println("POST /v1/messages/seen          - Mark messages seen")
	fmt.Println("GET  /v1/activity               - Recent notifications")
	fmt.Println("GET  /v1/ws                     - Realtime websocket")

	fmt.Println("\n== Production? =================================================")
	if len(cfg.Security.SigningSecrets) == 0 {
		fmt.Println("Configure security.signing_secrets before exposing the API")
	}
	if cfg.Server.TLS.CertFile == "" {
		fmt.Println("No TLS configured; terminate TLS upstream or set server.tls")
	}
}
