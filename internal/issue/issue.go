// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	DataStoreNotFoundId
	DataStoreCorruptId
	TransactionNotFoundId
	DefaultsNotFoundId
	DefaultsParseErrorId
	MigrationDirNotFoundId
	MigrationFailedId
	InvalidVersionId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the keel configuration file.

## Configuration file location:
- /etc/keel/config.cue

## Things you can try:
- Create a default configuration:
~~~
$ migrator config init
~~~

- Inspect the effective configuration:
~~~
$ migrator config show
~~~

- Check the configuration syntax; the file is CUE and every field is optional
- Remove the config file to fall back to built-in defaults:
~~~
$ rm /etc/keel/config.cue
~~~

## Example configuration:
~~~cue
datastore_path: "/var/lib/keel/datastore"
migration_dir:  "/var/lib/keel/migrations"
defaults_path:  "/usr/share/keel/defaults.toml"
log_level:      "info"
~~~`,
	}

	dataStoreNotFoundIssue = &Issue{
		id: DataStoreNotFoundId,
		mdMsg: `
# Datastore not found!

The datastore directory does not exist or is not initialized.

## Expected location:
- The path from ` + "`datastore_path`" + ` in /etc/keel/config.cue
  (default: /var/lib/keel/datastore)

## Things you can try:
- Initialize a datastore with the shipped defaults:
~~~
$ storeinit --data-store-path /var/lib/keel/datastore
~~~

- Point at an existing datastore:
~~~
$ migrator run --datastore-path /path/to/datastore --migrate-to-version <version>
~~~

- Check the ` + "`datastore_path`" + ` value in your configuration:
~~~
$ migrator config show
~~~`,
	}

	dataStoreCorruptIssue = &Issue{
		id: DataStoreCorruptId,
		mdMsg: `
# Datastore corruption detected!

A file inside the datastore could not be read back as a valid key or value.
The operation was aborted so the damage does not spread; nothing was repaired
automatically.

## Common causes:
- Manual edits inside the datastore directory
- A file copied into the store tree by hand
- Interrupted writes by tools other than keel

## Things you can try:
- Check the reported path and remove or restore the offending file
- Restore the datastore directory from a backup
- Re-initialize from defaults as a last resort (loses local settings):
~~~
$ storeinit --data-store-path /var/lib/keel/datastore --overwrite
~~~`,
	}

	transactionNotFoundIssue = &Issue{
		id: TransactionNotFoundId,
		mdMsg: `
# Pending transaction not found!

The named pending transaction does not exist, so there is nothing to commit
or delete.

## Things you can try:
- Check the transaction name for typos
- A transaction only exists after at least one key has been written to it
- Committing a transaction consumes it; a second commit of the same name
  fails unless new keys were written in between`,
	}

	defaultsNotFoundIssue = &Issue{
		id: DefaultsNotFoundId,
		mdMsg: `
# Defaults file not found!

storeinit needs a defaults TOML file to populate a new datastore.

## Expected location:
- The path from ` + "`defaults_path`" + ` in /etc/keel/config.cue
  (default: /usr/share/keel/defaults.toml)

## Things you can try:
- Pass the file explicitly:
~~~
$ storeinit --data-store-path /var/lib/keel/datastore --defaults-path /path/to/defaults.toml
~~~

- Verify the file is installed and readable

## Example defaults file:
~~~toml
[settings.host]
hostname = "localhost"

[metadata.settings.host.hostname]
affected-services = ["hostname"]
~~~`,
	}

	defaultsParseErrorIssue = &Issue{
		id: DefaultsParseErrorId,
		mdMsg: `
# Failed to parse defaults file!

The defaults TOML file contains syntax errors or an invalid shape.

## Shape rules:
- ` + "`[settings]`" + ` and ` + "`[metadata]`" + ` must be tables when present
- Metadata leaves must be strings or arrays
- Other top-level tables are written to the live store as-is

## Things you can try:
- Check the error message above for the offending key
- Validate the TOML syntax with any TOML linter
- Compare against the example in the storeinit documentation`,
	}

	migrationDirNotFoundIssue = &Issue{
		id: MigrationDirNotFoundId,
		mdMsg: `
# Migration directory not found!

The directory that should hold migration executables does not exist.

## Expected location:
- The path from ` + "`migration_dir`" + ` in /etc/keel/config.cue
  (default: /var/lib/keel/migrations)

## Things you can try:
- Pass the directory explicitly:
~~~
$ migrator run --migration-directory /path/to/migrations --migrate-to-version <version>
~~~

- An empty directory is fine: the migrator then only restamps the version
  marker
- Migration executables must be named like:
~~~
migrate_v1.2.0_add-settings
~~~`,
	}

	migrationFailedIssue = &Issue{
		id: MigrationFailedId,
		mdMsg: `
# Migration failed!

A migration unit exited with an error. The run was aborted and the live
datastore was left untouched; the partially migrated working copy has been
removed.

## Things you can try:
- Inspect the unit's stderr in the log output above
- Preview the chain without executing it:
~~~
$ migrator plan --migrate-to-version <version>
~~~

- Run the failing unit by hand against a scratch copy of the datastore:
~~~
$ migrate_v1.2.0_add-settings --source-datastore /tmp/src --target-datastore /tmp/dst --forward
~~~`,
	}

	invalidVersionIssue = &Issue{
		id: InvalidVersionId,
		mdMsg: `
# Invalid version!

A version string could not be parsed as semver.

## Accepted forms:
- ` + "`1.2.0`" + ` or ` + "`v1.2.0`" + `
- Pre-release and build suffixes are allowed: ` + "`1.2.0-rc1`" + `

## Things you can try:
- Check the ` + "`--migrate-to-version`" + ` flag value
- Check the datastore version marker file (` + "`version`" + ` inside the
  current store directory)
- When no ` + "`--version`" + ` flag is given, storeinit falls back to
  VERSION_ID from /etc/os-release; verify that value parses as semver`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Common causes:
- The datastore lives under /var/lib and requires root to modify
- The migration directory or defaults file is not readable
- A migration unit is not executable

## Things you can try:
- Re-run with elevated permissions
- Check ownership and mode of the datastore directory:
~~~
$ ls -ld /var/lib/keel/datastore
~~~

- Mark migration units executable:
~~~
$ chmod +x /var/lib/keel/migrations/migrate_v*
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		dataStoreNotFoundIssue.Id():    dataStoreNotFoundIssue,
		dataStoreCorruptIssue.Id():     dataStoreCorruptIssue,
		transactionNotFoundIssue.Id():  transactionNotFoundIssue,
		defaultsNotFoundIssue.Id():     defaultsNotFoundIssue,
		defaultsParseErrorIssue.Id():   defaultsParseErrorIssue,
		migrationDirNotFoundIssue.Id(): migrationDirNotFoundIssue,
		migrationFailedIssue.Id():      migrationFailedIssue,
		invalidVersionIssue.Id():       invalidVersionIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
