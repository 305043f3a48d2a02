package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the Petri ASCII art banner with the version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Subtle gradient-like color scheme (Indigo/Violet)
	s1 := termenv.String("                 _        _ ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("      _ __   ___| |_ _ __(_)").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String("     | '_ \\ / _ \\ __| '__| |").Foreground(p.Color("#c084fc"))
	s4 := termenv.String("     | |_) |  __/ |_| |  | |").Foreground(p.Color("#e879f9"))
	s5 := termenv.String("     | .__/ \\___|\\__|_|  |_|").Foreground(p.Color("#f472b6"))
	s6 := termenv.String("     |_|                    ").Foreground(p.Color("#fb7185"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	if v := strings.TrimSpace(version); v != "" {
		fmt.Printf("     v%s\n", v)
	}
	fmt.Println()
}
