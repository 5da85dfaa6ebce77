package coverage

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
)

var exceptionKeywords = []string{"except", "catch", "Result<", "Err("}

var symbolKindByNodeKind = map[string]SymbolKind{
	"function_definition": SymbolFunction, "function_item": SymbolFunction,
	"function_declaration": SymbolFunction, "method_definition": SymbolFunction,
	"class_definition": SymbolClass, "class_declaration": SymbolClass, "struct_item": SymbolClass,
	"module": SymbolModule, "module_declaration": SymbolModule,
}

// buildGaps constructs one CoverageGap per chunked span, computing its
// feature block and preview (step 4).
func (d *Detector) buildGaps(path, language string, spans []UncoveredSpan, fileLOC int) []CoverageGap {
	if len(spans) == 0 {
		return nil
	}
	lines := d.readFileLines(path)
	content := strings.Join(lines, "\n")

	var ctx *astsvc.Context
	if d.ast != nil && d.reader != nil {
		if ct, err := d.ast.GetAST(path, extOf(path), []byte(content)); err == nil {
			ctx = d.ast.CreateContext(ct, path)
		}
	}

	var allPoints []astsvc.DecisionPoint
	if ctx != nil {
		root := ctx.Tree.RootNode()
		allPoints = astsvc.ForEntity(ctx, language, root.StartByte(), root.EndByte())
	}

	gaps := make([]CoverageGap, 0, len(spans))
	for _, span := range spans {
		span.Path = path
		gap := CoverageGap{
			Path:     path,
			Language: language,
			Span:     span,
			FileLOC:  fileLOC,
		}
		gap.Features.GapLOC = span.lineCount()

		var inGap []astsvc.DecisionPoint
		for _, p := range allPoints {
			if p.Line >= span.Start && p.Line <= span.End {
				inGap = append(inGap, p)
			}
		}
		if len(inGap) > 0 {
			gap.Features.CyclomaticInGap = 1.0 + float64(len(inGap))
		}
		var cognitive float64
		for _, p := range inGap {
			cognitive += float64(cognitiveWeight(p.Kind)) + float64(p.Depth)
		}
		gap.Features.CognitiveInGap = cognitive

		snippet := extractLines(lines, span.Start, span.End)
		gap.Features.ExportsTouched = anyLine(snippet, func(trimmed string) bool {
			return strings.HasPrefix(trimmed, "pub ") || strings.HasPrefix(trimmed, "export ") ||
				strings.HasPrefix(trimmed, "public ") || strings.Contains(trimmed, "__all__")
		})
		gap.Features.DocstringOrCommentPresent = anyLineTrimmed(snippet, func(trimmed string) bool {
			return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "///") ||
				strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") ||
				strings.HasPrefix(trimmed, `"""`)
		})

		if ctx != nil {
			gap.Symbols = extractSymbolsFromAST(ctx.Tree.RootNode(), []byte(content), span.Start, span.End)
		}
		gap.Features.InterfaceSurface = interfaceSurface(gap.Symbols)

		if len(gap.Symbols) > 0 {
			rest := removeSpanFromContent(lines, span.Start, span.End)
			fanIn := 0
			for _, s := range gap.Symbols {
				fanIn += strings.Count(rest, s.Name)
			}
			if fanIn < len(gap.Symbols) {
				fanIn = len(gap.Symbols)
			}
			gap.Features.FanInGap = fanIn
		}

		if len(snippet) > 0 {
			exceptions := 0
			for _, line := range snippet {
				for _, kw := range exceptionKeywords {
					if strings.Contains(line, kw) {
						exceptions++
						break
					}
				}
			}
			denom := gap.Features.GapLOC
			if denom < 1 {
				denom = 1
			}
			gap.Features.ExceptionDensityInGap = float64(exceptions) / float64(denom)
		}

		gap.Preview = buildPreview(lines, span, d.cfg.SnippetContextLines, d.cfg.LongGapHeadTail, language)

		gaps = append(gaps, gap)
	}
	return gaps
}

func buildPreview(lines []string, span UncoveredSpan, contextLines, headTailLimit int, language string) SnippetPreview {
	preStart := span.Start - contextLines
	if preStart < 1 {
		preStart = 1
	}
	postEnd := span.End + contextLines
	if postEnd > len(lines) {
		postEnd = len(lines)
	}

	preview := SnippetPreview{
		Pre:     extractLines(lines, preStart, span.Start-1),
		Post:    extractLines(lines, span.End+1, postEnd),
		Imports: extractImports(lines, language),
	}

	gapSize := span.lineCount()
	if gapSize > headTailLimit*2 {
		preview.Head = extractLines(lines, span.Start, span.Start+headTailLimit-1)
		preview.Tail = extractLines(lines, span.End-headTailLimit+1, span.End)
	} else {
		preview.Head = extractLines(lines, span.Start, span.End)
	}
	return preview
}

func anyLine(lines []string, pred func(trimmedLeft string) bool) bool {
	for _, l := range lines {
		if pred(strings.TrimLeft(l, " \t")) {
			return true
		}
	}
	return false
}

func anyLineTrimmed(lines []string, pred func(trimmed string) bool) bool {
	for _, l := range lines {
		if pred(strings.TrimSpace(l)) {
			return true
		}
	}
	return false
}

func removeSpanFromContent(lines []string, start, end int) string {
	var b strings.Builder
	for idx, line := range lines {
		lineNo := idx + 1
		if lineNo < start || lineNo > end {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func interfaceSurface(symbols []GapSymbol) int {
	total := 0
	for _, s := range symbols {
		total += strings.Count(s.Signature, ",") + 1
	}
	return total
}

func cognitiveWeight(kind astsvc.DecisionKind) int {
	return 1
}

// extractSymbolsFromAST walks tree for function/class/module declarations
// whose line range is fully contained in [startLine, endLine].
func extractSymbolsFromAST(root tree_sitter.Node, source []byte, startLine, endLine int) []GapSymbol {
	var symbols []GapSymbol
	stack := []tree_sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nodeStartLine := int(n.StartPosition().Row) + 1
		nodeEndLine := int(n.EndPosition().Row) + 1
		if nodeStartLine > endLine || nodeEndLine < startLine {
			continue
		}

		if kind, ok := symbolKindByNodeKind[n.Kind()]; ok {
			name := ""
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				name = strings.TrimSpace(nodeText(nameNode, source))
			}
			if name == "" {
				fields := strings.Fields(nodeText(&n, source))
				if len(fields) > 0 {
					name = fields[0]
				}
			}
			if name != "" && nodeStartLine >= startLine && nodeEndLine <= endLine {
				symbols = append(symbols, GapSymbol{
					Kind:      kind,
					Name:      name,
					Signature: nodeText(&n, source),
					LineStart: nodeStartLine,
					LineEnd:   nodeEndLine,
				})
			}
		}

		childCount := int(n.ChildCount())
		for i := 0; i < childCount; i++ {
			if c := n.Child(uint(i)); c != nil {
				stack = append(stack, *c)
			}
		}
	}
	return symbols
}

func nodeText(n *tree_sitter.Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(source) {
		end = uint(len(source))
	}
	return strings.TrimSpace(string(source[start:end]))
}

func extOf(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	return path[idx:]
}
