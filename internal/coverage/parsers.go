package coverage

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	verrors "github.com/sibyllinesoft/valknut/internal/errors"
)

// ReportFormat names one of the coverage report formats requires
// parsing "bit-exact".
type ReportFormat string

const (
	FormatLCOV      ReportFormat = "lcov"
	FormatCobertura ReportFormat = "cobertura"
	FormatJSON      ReportFormat = "json"
	FormatJaCoCo    ReportFormat = "jacoco"
	FormatClover    ReportFormat = "clover"
)

// ParseReport dispatches to the parser for format. It reads a single report;
// results from several reports are not combined here.
func ParseReport(format ReportFormat, r io.Reader) ([]FileCoverage, error) {
	switch format {
	case FormatLCOV:
		return parseLCOV(r)
	case FormatCobertura:
		return parseCobertura(r)
	case FormatJSON:
		return parseJSON(r)
	case FormatJaCoCo:
		return parseJaCoCo(r)
	case FormatClover:
		return parseClover(r)
	default:
		return nil, verrors.Parse("", errUnknownFormat(format))
	}
}

func errUnknownFormat(f ReportFormat) error {
	return &unknownFormatError{format: f}
}

type unknownFormatError struct{ format ReportFormat }

func (e *unknownFormatError) Error() string {
	return "coverage: unknown report format " + string(e.format)
}

// parseLCOV parses the `SF:`/`DA:line,hits`/`end_of_record` LCOV tracefile
// format.
func parseLCOV(r io.Reader) ([]FileCoverage, error) {
	var files []FileCoverage
	var current *FileCoverage

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "SF:"):
			if current != nil {
				files = append(files, *current)
			}
			current = &FileCoverage{Path: strings.TrimPrefix(line, "SF:")}
		case strings.HasPrefix(line, "DA:"):
			if current == nil {
				continue
			}
			parts := strings.SplitN(strings.TrimPrefix(line, "DA:"), ",", 3)
			if len(parts) < 2 {
				continue
			}
			lineNo, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			hits, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			current.Lines = append(current.Lines, LineCoverage{Line: lineNo, Hits: hits, IsCovered: hits > 0})
		case line == "end_of_record":
			if current != nil {
				files = append(files, *current)
				current = nil
			}
		}
	}
	if current != nil {
		files = append(files, *current)
	}
	if err := scanner.Err(); err != nil {
		return nil, verrors.Parse("", err)
	}
	return files, nil
}

// coberturaReport is the subset of Cobertura XML's schema this parser reads.
type coberturaReport struct {
	XMLName xml.Name           `xml:"coverage"`
	Packages []coberturaPackage `xml:"packages>package"`
}

type coberturaPackage struct {
	Classes []coberturaClass `xml:"classes>class"`
}

type coberturaClass struct {
	Filename string          `xml:"filename,attr"`
	Lines    []coberturaLine `xml:"lines>line"`
}

type coberturaLine struct {
	Number int `xml:"number,attr"`
	Hits   int `xml:"hits,attr"`
}

func parseCobertura(r io.Reader) ([]FileCoverage, error) {
	var report coberturaReport
	if err := xml.NewDecoder(r).Decode(&report); err != nil {
		return nil, verrors.Parse("", err)
	}

	byPath := make(map[string]*FileCoverage)
	var order []string
	for _, pkg := range report.Packages {
		for _, cls := range pkg.Classes {
			fc, ok := byPath[cls.Filename]
			if !ok {
				fc = &FileCoverage{Path: cls.Filename}
				byPath[cls.Filename] = fc
				order = append(order, cls.Filename)
			}
			for _, line := range cls.Lines {
				fc.Lines = append(fc.Lines, LineCoverage{Line: line.Number, Hits: line.Hits, IsCovered: line.Hits > 0})
			}
		}
	}
	return collectByOrder(byPath, order), nil
}

// parseJSON parses the tool-agnostic `{files: {path: {line: hits}}}` shape.
func parseJSON(r io.Reader) ([]FileCoverage, error) {
	var payload struct {
		Files map[string]map[string]int `json:"files"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, verrors.Parse("", err)
	}

	var order []string
	byPath := make(map[string]*FileCoverage)
	for path, lines := range payload.Files {
		fc := &FileCoverage{Path: path}
		for lineStr, hits := range lines {
			lineNo, err := strconv.Atoi(lineStr)
			if err != nil {
				continue
			}
			fc.Lines = append(fc.Lines, LineCoverage{Line: lineNo, Hits: hits, IsCovered: hits > 0})
		}
		byPath[path] = fc
		order = append(order, path)
	}
	return collectByOrder(byPath, order), nil
}

// jacocoReport is the subset of JaCoCo XML's schema this parser reads: each
// <sourcefile> carries <line nr= mi= ci=> entries (mi = missed instructions,
// ci = covered instructions; a line is covered when ci > 0).
type jacocoReport struct {
	XMLName  xml.Name         `xml:"report"`
	Packages []jacocoPackage  `xml:"package"`
}

type jacocoPackage struct {
	Name        string             `xml:"name,attr"`
	SourceFiles []jacocoSourceFile `xml:"sourcefile"`
}

type jacocoSourceFile struct {
	Name  string       `xml:"name,attr"`
	Lines []jacocoLine `xml:"line"`
}

type jacocoLine struct {
	Nr int `xml:"nr,attr"`
	CI int `xml:"ci,attr"`
}

func parseJaCoCo(r io.Reader) ([]FileCoverage, error) {
	var report jacocoReport
	if err := xml.NewDecoder(r).Decode(&report); err != nil {
		return nil, verrors.Parse("", err)
	}

	var order []string
	byPath := make(map[string]*FileCoverage)
	for _, pkg := range report.Packages {
		for _, sf := range pkg.SourceFiles {
			path := sf.Name
			if pkg.Name != "" {
				path = pkg.Name + "/" + sf.Name
			}
			fc := &FileCoverage{Path: path}
			for _, line := range sf.Lines {
				fc.Lines = append(fc.Lines, LineCoverage{Line: line.Nr, Hits: line.CI, IsCovered: line.CI > 0})
			}
			byPath[path] = fc
			order = append(order, path)
		}
	}
	return collectByOrder(byPath, order), nil
}

// cloverReport is the subset of Clover XML's schema this parser reads.
type cloverReport struct {
	XMLName xml.Name       `xml:"coverage"`
	Project cloverProject  `xml:"project"`
}

type cloverProject struct {
	Files []cloverFile `xml:"file"`
}

type cloverFile struct {
	Path  string       `xml:"path,attr"`
	Name  string       `xml:"name,attr"`
	Lines []cloverLine `xml:"line"`
}

type cloverLine struct {
	Num   int    `xml:"num,attr"`
	Count int    `xml:"count,attr"`
	Type  string `xml:"type,attr"`
}

func parseClover(r io.Reader) ([]FileCoverage, error) {
	var report cloverReport
	if err := xml.NewDecoder(r).Decode(&report); err != nil {
		return nil, verrors.Parse("", err)
	}

	var order []string
	byPath := make(map[string]*FileCoverage)
	for _, f := range report.Project.Files {
		path := f.Path
		if path == "" {
			path = f.Name
		}
		fc := &FileCoverage{Path: path}
		for _, line := range f.Lines {
			if line.Type != "" && line.Type != "stmt" && line.Type != "method" {
				continue
			}
			fc.Lines = append(fc.Lines, LineCoverage{Line: line.Num, Hits: line.Count, IsCovered: line.Count > 0})
		}
		byPath[path] = fc
		order = append(order, path)
	}
	return collectByOrder(byPath, order), nil
}

func collectByOrder(byPath map[string]*FileCoverage, order []string) []FileCoverage {
	out := make([]FileCoverage, 0, len(order))
	for _, path := range order {
		out = append(out, *byPath[path])
	}
	return out
}
