/*
Package replicator mirrors the rows of a shared map into external durable
stores.

The package defines the generic IExternalReplicator interface and two
implementations in the subpackages file (one file per row) and sql
(a relational table via database/sql). Both implementations derive their
external layout from struct tags on the mirrored row type, see the fieldmap
subpackage for the tag format.

For mirroring raw shared map entries the package provides EntryRecord, a
pre-tagged row type, together with the Mirror adapter which turns any
replicator over EntryRecord into an smap.Listener:

	rep, err := file.NewFileReplicator[string, replicator.EntryRecord](dir)
	if err != nil {
		...
	}
	m := smap.NewSharedMap(replicator.Mirror(rep))

Mirroring is one-directional and best-effort: the map is the source of
truth, failures to update the external store are logged and skipped.
*/
package replicator
