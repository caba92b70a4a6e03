// Package downloads describes the desktop tracker installers offered on the
// download page.
package downloads

import (
	"fmt"
	"strings"
)

// Platform identifies an installer target.
type Platform string

const (
	Windows Platform = "windows"
	Mac     Platform = "mac"
	Linux   Platform = "linux"
)

// DefaultBaseURL hosts the Windows and Linux installers unless configured.
const DefaultBaseURL = "https://example.com/downloads"

// DefaultMacURL is the published macOS disk image.
const DefaultMacURL = "https://github.com/seemanitharwal/frontend/releases/download/macDmg/Mercor.Time.Tracker-1.0.0.dmg"

// Requirements lists minimum system requirements for one platform.
type Requirements struct {
	OS        string `json:"os"`
	Processor string `json:"processor"`
	Memory    string `json:"memory"`
	Storage   string `json:"storage"`
}

// Installer is one downloadable build.
type Installer struct {
	Platform     Platform     `json:"platform"`
	Label        string       `json:"label"`
	URL          string       `json:"url"`
	Requirements Requirements `json:"requirements"`
}

// Feature is a selling point shown under the download cards.
type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Catalog is the content of the download page.
type Catalog struct {
	Installers []Installer `json:"installers"`
	Features   []Feature   `json:"features"`
}

// NewCatalog builds the catalogue. Windows and Linux installers are served
// from baseURL; macURL overrides the macOS image location.
func NewCatalog(baseURL, macURL string) Catalog {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if macURL == "" {
		macURL = DefaultMacURL
	}
	return Catalog{
		Installers: []Installer{
			{
				Platform: Windows,
				Label:    "Download for Windows",
				URL:      base + "/MercorTimeTrackerSetup.exe",
				Requirements: Requirements{
					OS:        "Windows 10 or later",
					Processor: "Intel Core i3 or AMD equivalent",
					Memory:    "4 GB RAM",
					Storage:   "500 MB available space",
				},
			},
			{
				Platform: Mac,
				Label:    "Download for macOS",
				URL:      macURL,
				Requirements: Requirements{
					OS:        "macOS 10.14 or later",
					Processor: "Intel Core i3 or Apple Silicon",
					Memory:    "4 GB RAM",
					Storage:   "500 MB available space",
				},
			},
			{
				Platform: Linux,
				Label:    "Download for Linux",
				URL:      base + "/MercorTimeTracker.AppImage",
				Requirements: Requirements{
					OS:        "Ubuntu 18.04+ or equivalent",
					Processor: "Intel Core i3 or AMD equivalent",
					Memory:    "4 GB RAM",
					Storage:   "500 MB available space",
				},
			},
		},
		Features: []Feature{
			{"Precise Time Tracking", "Start and stop time tracking with project selection and automatic session management"},
			{"Screenshot Monitoring", "Configurable screenshot capture every 5 minutes with permission handling"},
			{"Device Security", "MAC address and IP tracking for fraud prevention and security"},
			{"Offline Support", "Works offline with automatic sync when connection is restored"},
		},
	}
}

// Link returns the installer for platform.
func (c Catalog) Link(platform string) (Installer, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(platform)))
	if p == "macos" || p == "darwin" {
		p = Mac
	}
	for _, in := range c.Installers {
		if in.Platform == p {
			return in, nil
		}
	}
	return Installer{}, fmt.Errorf("unknown platform %q", platform)
}
