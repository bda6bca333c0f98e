package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Terminal colors (ANSI 256 palette).
const (
	colorDeparture = "10"
	colorArrival   = "11"
	colorBrand     = "9"
	colorStation   = "13"
	colorHeader    = "12"
	colorError     = "9"
	colorDim       = "7"
)

// Renderer writes styled lines. Styling is dropped for --nocolor, NO_COLOR
// and non-terminal output.
type Renderer struct {
	out     io.Writer
	r       *lipgloss.Renderer
	printer *message.Printer
}

// NewRenderer returns a renderer writing to w.
func NewRenderer(w io.Writer, noColor bool) *Renderer {
	r := lipgloss.NewRenderer(w)
	if noColor || !colorEnabled(w) {
		r.SetColorProfile(termenv.Ascii)
	} else {
		r.SetColorProfile(termenv.ANSI256)
	}
	return &Renderer{
		out:     w,
		r:       r,
		printer: message.NewPrinter(language.Polish),
	}
}

func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Println writes a line, skipping blank ones.
func (r *Renderer) Println(parts ...string) {
	line := strings.Join(parts, "")
	if strings.TrimSpace(line) == "" {
		return
	}
	_, _ = fmt.Fprintln(r.out, line)
}

func (r *Renderer) fg(color string) lipgloss.Style {
	return r.r.NewStyle().Foreground(lipgloss.Color(color))
}

// Header renders a bold blue title.
func (r *Renderer) Header(s string) string {
	return r.fg(colorHeader).Bold(true).Render(s)
}

// Departure renders a departure time.
func (r *Renderer) Departure(s string) string {
	return r.fg(colorDeparture).Bold(true).Render(s)
}

// Arrival renders an arrival time.
func (r *Renderer) Arrival(s string) string {
	return r.fg(colorArrival).Bold(true).Render(s)
}

// Brand renders a train brand.
func (r *Renderer) Brand(s string) string {
	return r.fg(colorBrand).Render(s)
}

// Station renders station names and positions.
func (r *Renderer) Station(s string) string {
	return r.fg(colorStation).Render(s)
}

// Warning renders constriction and error notes.
func (r *Renderer) Warning(s string) string {
	return r.fg(colorError).Bold(true).Render(s)
}

// Dim renders secondary information.
func (r *Renderer) Dim(s string) string {
	return r.fg(colorDim).Render(s)
}

// Underline renders s underlined.
func (r *Renderer) Underline(s string) string {
	return r.r.NewStyle().Underline(true).Render(s)
}

// Color renders s in an arbitrary palette color, optionally bold.
func (r *Renderer) Color(color string, bold bool, s string) string {
	return r.fg(color).Bold(bold).Render(s)
}

// Price formats a decimal price string as złoty: "45.99" -> "45,99 zł".
// Values that do not parse are shown as given.
func (r *Renderer) Price(value string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return value + " zł"
	}
	return r.printer.Sprintf("%.2f zł", v)
}

// Percent formats a percentage with one decimal place.
func (r *Renderer) Percent(p float64) string {
	return r.printer.Sprintf("%.1f%%", p)
}
