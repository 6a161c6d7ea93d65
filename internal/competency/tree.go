package competency

import (
	"fmt"
	"strings"
)

// DuplicatePolicy decides what happens when a key appears more than once.
type DuplicatePolicy int

const (
	// DefaultPolicy selects Reject for framework rows and KeepLast for
	// competencies.
	DefaultPolicy DuplicatePolicy = iota
	KeepFirst
	KeepLast
	Reject
)

func (p DuplicatePolicy) String() string {
	switch p {
	case KeepFirst:
		return "keep-first"
	case KeepLast:
		return "keep-last"
	case Reject:
		return "reject"
	}
	return "default"
}

// ParseDuplicatePolicy reads a policy name as printed by String.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return DefaultPolicy, nil
	case "keep-first", "first":
		return KeepFirst, nil
	case "keep-last", "last":
		return KeepLast, nil
	case "reject", "error":
		return Reject, nil
	}
	return DefaultPolicy, fmt.Errorf("unknown duplicate policy %q", s)
}

// Linker selects how children are attached to parents.
type Linker int

const (
	// LinkIndex groups records by parent idnumber once, then walks the groups.
	LinkIndex Linker = iota
	// LinkScan rescans every record for each parent.
	LinkScan
)

// TreeOptions configures BuildTree.
type TreeOptions struct {
	Frameworks   DuplicatePolicy
	Competencies DuplicatePolicy
	Linker       Linker
}

func (o TreeOptions) frameworkPolicy() DuplicatePolicy {
	if o.Frameworks == DefaultPolicy {
		return Reject
	}
	return o.Frameworks
}

func (o TreeOptions) competencyPolicy() DuplicatePolicy {
	if o.Competencies == DefaultPolicy {
		return KeepLast
	}
	return o.Competencies
}

// Tree is the framework record plus an arena of competency records. Arena
// indexes are stable for the life of the tree.
type Tree struct {
	Framework FrameworkRecord
	Nodes     []CompetencyRecord
	Warnings  []Warning

	Orphans    int
	Duplicates int

	byIDNumber map[string]int
	attached   []bool
}

// Lookup returns the arena index of the record with the given idnumber.
func (t *Tree) Lookup(idnumber string) (int, bool) {
	i, ok := t.byIDNumber[idnumber]
	return i, ok
}

// Attached reports whether node i is reachable from the framework root.
func (t *Tree) Attached(i int) bool {
	return i >= 0 && i < len(t.attached) && t.attached[i]
}

// Walk visits attached nodes in preorder. Returning false from fn skips the
// node's children.
func (t *Tree) Walk(fn func(idx, parent int) bool) {
	var visit func(children []int, parent int)
	visit = func(children []int, parent int) {
		for _, c := range children {
			if fn(c, parent) {
				visit(t.Nodes[c].Children, c)
			}
		}
	}
	visit(t.Framework.Children, -1)
}

func (t *Tree) warn(kind WarningKind, row int, idnumber, format string, args ...any) {
	t.Warnings = append(t.Warnings, Warning{
		Kind:     kind,
		Row:      row,
		IDNumber: idnumber,
		Message:  fmt.Sprintf(format, args...),
	})
}

// BuildTree reduces mapped rows to a single framework and its competency
// tree. Rows whose parent cannot be found are dropped with a warning. A parent
// cycle fails with ErrCyclicReference.
func BuildTree(rows []Row, opts TreeOptions) (*Tree, error) {
	t := &Tree{byIDNumber: make(map[string]int)}

	frameworkRow := -1
	for i, row := range rows {
		if isTruthy(row.Get(FieldIsFramework)) {
			if err := t.addFramework(i, row, &frameworkRow, opts.frameworkPolicy()); err != nil {
				return nil, err
			}
			continue
		}
		if err := t.addCompetency(i, row, opts.competencyPolicy()); err != nil {
			return nil, err
		}
	}

	if frameworkRow < 0 {
		return nil, fmt.Errorf("%w: no framework row found", ErrInvalidImportFile)
	}
	if t.Framework.IDNumber == "" || t.Framework.ShortName == "" {
		return nil, fmt.Errorf("%w: framework row %d needs an idnumber and a shortname",
			ErrInvalidImportFile, frameworkRow+1)
	}

	switch opts.Linker {
	case LinkScan:
		t.linkScan()
	default:
		t.linkIndex()
	}

	if err := t.checkUnattached(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) addFramework(i int, row Row, seen *int, policy DuplicatePolicy) error {
	rec := FrameworkRecord{
		IDNumber:           cleanText(row.Get(FieldIDNumber)),
		ShortName:          cleanText(row.Get(FieldShortName)),
		Description:        row.Get(FieldDescription),
		DescriptionFormat:  parseInt(row.Get(FieldDescriptionFormat)),
		ScaleValues:        strings.TrimSpace(row.Get(FieldScaleValues)),
		ScaleConfiguration: strings.TrimSpace(row.Get(FieldScaleConfiguration)),
		Taxonomies:         splitTaxonomies(row.Get(FieldTaxonomy)),
	}

	if *seen < 0 {
		t.Framework = rec
		*seen = i
		return nil
	}

	switch policy {
	case Reject:
		return fmt.Errorf("%w: rows %d and %d are both flagged isframework",
			ErrMultipleFrameworks, *seen+1, i+1)
	case KeepFirst:
		t.warn(WarnDuplicateFramework, i, rec.IDNumber,
			"framework row %d ignored, keeping row %d", i+1, *seen+1)
	default:
		t.warn(WarnDuplicateFramework, i, rec.IDNumber,
			"framework row %d replaces row %d", i+1, *seen+1)
		t.Framework = rec
		*seen = i
	}
	return nil
}

func (t *Tree) addCompetency(i int, row Row, policy DuplicatePolicy) error {
	rec := CompetencyRecord{
		Row:                i,
		ParentIDNumber:     cleanText(row.Get(FieldParentIDNumber)),
		IDNumber:           cleanText(row.Get(FieldIDNumber)),
		ShortName:          cleanText(row.Get(FieldShortName)),
		Description:        row.Get(FieldDescription),
		DescriptionFormat:  parseInt(row.Get(FieldDescriptionFormat)),
		ScaleValues:        strings.TrimSpace(row.Get(FieldScaleValues)),
		ScaleConfiguration: strings.TrimSpace(row.Get(FieldScaleConfiguration)),
		RuleType:           strings.TrimSpace(row.Get(FieldRuleType)),
		RuleOutcome:        parseInt(row.Get(FieldRuleOutcome)),
		RelatedIDNumbers:   splitRelated(row.Get(FieldRelatedIDNumbers)),
		ExportID:           strings.TrimSpace(row.Get(FieldExportID)),
	}
	if cfg := strings.TrimSpace(row.Get(FieldRuleConfig)); cfg != "" && cfg != nullConfig {
		rec.RuleConfig = &cfg
	}

	// Records without an idnumber cannot be parents or be referenced, so they
	// stay out of the index.
	if rec.IDNumber == "" {
		t.Nodes = append(t.Nodes, rec)
		return nil
	}

	prev, dup := t.byIDNumber[rec.IDNumber]
	if !dup {
		t.byIDNumber[rec.IDNumber] = len(t.Nodes)
		t.Nodes = append(t.Nodes, rec)
		return nil
	}

	t.Duplicates++
	prevRow := t.Nodes[prev].Row
	switch policy {
	case Reject:
		return fmt.Errorf("%w: %q on rows %d and %d",
			ErrDuplicateIDNumber, rec.IDNumber, prevRow+1, i+1)
	case KeepFirst:
		t.warn(WarnDuplicateIDNumber, i, rec.IDNumber,
			"idnumber %q on row %d ignored, keeping row %d", rec.IDNumber, i+1, prevRow+1)
	default:
		t.warn(WarnDuplicateIDNumber, i, rec.IDNumber,
			"idnumber %q on row %d replaces row %d", rec.IDNumber, i+1, prevRow+1)
		// Keep the slot so sibling order follows first appearance.
		t.Nodes[prev] = rec
	}
	return nil
}

// rootAlias is the framework idnumber when no competency claims it. Rows
// naming it as parent attach to the root like rows with an empty parent.
func (t *Tree) rootAlias() string {
	if _, taken := t.byIDNumber[t.Framework.IDNumber]; taken {
		return ""
	}
	return t.Framework.IDNumber
}

func (t *Tree) isRootKey(parent string) bool {
	return parent == "" || parent == t.rootAlias()
}

// linkIndex groups arena nodes by parent idnumber and attaches them from the
// root down.
func (t *Tree) linkIndex() {
	t.attached = make([]bool, len(t.Nodes))
	byParent := make(map[string][]int)
	var roots []int
	for i := range t.Nodes {
		p := t.Nodes[i].ParentIDNumber
		if t.isRootKey(p) {
			roots = append(roots, i)
			continue
		}
		byParent[p] = append(byParent[p], i)
	}

	var attach func(children []int) []int
	attach = func(children []int) []int {
		for _, c := range children {
			t.attached[c] = true
		}
		for _, c := range children {
			if id := t.Nodes[c].IDNumber; id != "" {
				t.Nodes[c].Children = attach(byParent[id])
			}
		}
		return children
	}
	t.Framework.Children = attach(roots)
}

// linkScan attaches children by scanning every node for each parent key.
func (t *Tree) linkScan() {
	t.attached = make([]bool, len(t.Nodes))

	var attach func(match func(parent string) bool) []int
	attach = func(match func(parent string) bool) []int {
		var children []int
		for i := range t.Nodes {
			if !t.attached[i] && match(t.Nodes[i].ParentIDNumber) {
				t.attached[i] = true
				children = append(children, i)
			}
		}
		for _, c := range children {
			if id := t.Nodes[c].IDNumber; id != "" {
				t.Nodes[c].Children = attach(func(parent string) bool { return parent == id })
			}
		}
		return children
	}
	t.Framework.Children = attach(t.isRootKey)
}

// checkUnattached classifies every node the linker could not reach. A parent
// chain that returns to itself is a cycle; any other chain ends at a missing
// parent and its nodes are orphans.
func (t *Tree) checkUnattached() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(t.Nodes))

	for start := range t.Nodes {
		if t.attached[start] || state[start] != unvisited {
			continue
		}

		var path []int
		cur := start
		for {
			if t.attached[cur] || state[cur] == done {
				break
			}
			if state[cur] == visiting {
				return t.cycleError(path, cur)
			}
			state[cur] = visiting
			path = append(path, cur)

			next, ok := t.byIDNumber[t.Nodes[cur].ParentIDNumber]
			if !ok {
				break
			}
			cur = next
		}

		for _, n := range path {
			state[n] = done
			rec := t.Nodes[n]
			t.Orphans++
			if _, inFile := t.byIDNumber[rec.ParentIDNumber]; inFile {
				t.warn(WarnOrphan, rec.Row, rec.IDNumber,
					"row %d dropped: parent %q is not attached to the framework", rec.Row+1, rec.ParentIDNumber)
			} else {
				t.warn(WarnOrphan, rec.Row, rec.IDNumber,
					"row %d dropped: parent %q is not in the file", rec.Row+1, rec.ParentIDNumber)
			}
		}
	}
	return nil
}

func (t *Tree) cycleError(path []int, repeat int) error {
	var ids []string
	inCycle := false
	for _, n := range path {
		if n == repeat {
			inCycle = true
		}
		if inCycle {
			ids = append(ids, t.Nodes[n].IDNumber)
		}
	}
	ids = append(ids, t.Nodes[repeat].IDNumber)
	return fmt.Errorf("%w: %s", ErrCyclicReference, strings.Join(ids, " -> "))
}
