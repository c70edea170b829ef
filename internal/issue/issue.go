// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	FileNotFoundId Id = iota + 1
	SetConfigInvalidId
	SettingsLoadFailedId
	FileListInvalidId
	NoRecordsId
	DatasetRootInvalidId
	OutputWriteFailedId
	BroadcastUnavailableId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown using the glamour style at
// stylePath ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also:\n")
		for _, link := range i.docLinks {
			md.WriteString("- [" + string(link) + "](" + string(link) + ")\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- [" + string(link) + "](" + string(link) + ")\n")
		}
	}
	return render(md.String(), stylePath)
}

const (
	bidsSpecLink    HttpLink = "https://bids-specification.readthedocs.io/en/stable/"
	entityTableLink HttpLink = "https://bids-specification.readthedocs.io/en/stable/appendices/entity-table.html"
	cueDocsLink     HttpLink = "https://cuelang.org/docs/"
)

var (
	render = glamour.Render

	fileNotFoundIssue = &Issue{
		id: FileNotFoundId,
		mdMsg: `
# File not found!

One of the files you passed on the command line does not exist.

## Things you can try:
- Check the path for typos
- Use an absolute path, or run bidsflow from the directory the path is relative to`,
		docLinks: []HttpLink{bidsSpecLink},
	}

	setConfigInvalidIssue = &Issue{
		id: SetConfigInvalidId,
		mdMsg: `
# The grouping configuration is invalid!

The document passed with ` + "`--config`" + ` did not pass validation. Nothing was processed.

## Things you can try:
- Every suffix entry needs exactly one of ` + "`plain_set`, `named_set`, `sequential_set`, `mixed_set`" + `
- ` + "`loop_over`" + ` must list at least one entity, without duplicates
- ` + "`required`" + ` may only name groups declared in the same entry
- ` + "`include`" + ` may only name other suffix entries of the document
- Run ` + "`bidsflow config explain <file>`" + ` to see how bidsflow reads a valid document`,
		docLinks: []HttpLink{entityTableLink},
		extLinks: []HttpLink{cueDocsLink},
	}

	settingsLoadFailedIssue = &Issue{
		id: SettingsLoadFailedId,
		mdMsg: `
# Failed to load settings!

The settings file (` + "`bidsflow.cue`" + `) or a ` + "`BIDSFLOW_*`" + ` environment variable holds an invalid value.

## Things you can try:
- Run ` + "`bidsflow config show`" + ` to print the effective settings
- ` + "`output.format`" + ` must be one of jsonl, yaml or sqlite
- The sqlite output needs ` + "`output.path`" + ``,
		docLinks: []HttpLink{cueDocsLink},
	}

	fileListInvalidIssue = &Issue{
		id: FileListInvalidId,
		mdMsg: `
# The file list could not be read!

Every entry of the file list needs a path whose name follows the BIDS
` + "`key-value_suffix.ext`" + ` convention, or explicit ` + "`suffix`" + ` and ` + "`entities`" + ` fields.

## Things you can try:
- Use ` + "`bidsflow scan <dataset>`" + ` to produce a file list from a dataset
- Check the entry index printed in the error`,
		docLinks: []HttpLink{bidsSpecLink},
	}

	noRecordsIssue = &Issue{
		id: NoRecordsId,
		mdMsg: `
# No records were produced!

Every file was filtered out, or no group key satisfied its completeness rules.

## Things you can try:
- Re-run with ` + "`--log-level debug`" + ` to see why each file was dropped
- Check that the suffixes in the configuration match the files (` + "`suffix_maps_to`" + `)
- Relax ` + "`required`" + ` groups or sequential ` + "`parts`" + ``,
		docLinks: []HttpLink{entityTableLink},
	}

	datasetRootInvalidIssue = &Issue{
		id: DatasetRootInvalidId,
		mdMsg: `
# The dataset root is invalid!

Record paths are written relative to the dataset root, and some files lie outside it.

## Things you can try:
- Set ` + "`dataset_root`" + ` (or ` + "`--root`" + `) to the directory holding ` + "`dataset_description.json`" + `
- Leave the root unset when the file list already holds relative paths`,
		docLinks: []HttpLink{bidsSpecLink},
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Failed to write records!

The output could not be written. Records already written may be incomplete.

## Things you can try:
- Check that the output directory exists and is writable
- For the sqlite output, make sure no other process holds the database lock`,
		docLinks: []HttpLink{bidsSpecLink},
	}

	broadcastUnavailableIssue = &Issue{
		id: BroadcastUnavailableId,
		mdMsg: `
# Task-independent files were not shared!

Some entries use ` + "`include`" + `, but the broadcast entity is not listed in ` + "`loop_over`" + `,
so no record can be told apart as task-independent.

## Things you can try:
- Add the broadcast entity (` + "`task`" + ` by default) to ` + "`loop_over`" + `
- Change ` + "`broadcast_entity`" + ` in the settings`,
		docLinks: []HttpLink{entityTableLink},
	}

	issues = map[Id]*Issue{
		fileNotFoundIssue.Id():         fileNotFoundIssue,
		setConfigInvalidIssue.Id():     setConfigInvalidIssue,
		settingsLoadFailedIssue.Id():   settingsLoadFailedIssue,
		fileListInvalidIssue.Id():      fileListInvalidIssue,
		noRecordsIssue.Id():            noRecordsIssue,
		datasetRootInvalidIssue.Id():   datasetRootInvalidIssue,
		outputWriteFailedIssue.Id():    outputWriteFailedIssue,
		broadcastUnavailableIssue.Id(): broadcastUnavailableIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
