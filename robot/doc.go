// Package robot holds the firmware catalogs of the sample changer: the tools the
// arm can carry, the trajectory paths it runs and the named arm positions it reports.
//
// Catalog entries are small comparable values addressed both by numeric id and by
// the name the controller uses on the wire. Lookup helpers accept either form, since
// status telegrams carry names or ids depending on the firmware revision.
package robot
