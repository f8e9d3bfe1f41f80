package filesvc

// Well-known ConfigDB identifiers for the Files service.
const (
	// FileClassUUID is the ConfigDB class every file object is created under.
	FileClassUUID = "f42291d3-fbf3-4c91-b00b-00dbcbbfbada"

	// FileServiceUUID is the service function UUID announced over Sparkplug.
	FileServiceUUID = "7213f5a3-0bb1-4151-ad83-d27dcb368980"

	// FileSchemaMapAppUUID is the ConfigDB application holding the
	// schema-to-file-type allow-list maps.
	FileSchemaMapAppUUID = "253e14b5-9bd1-4c82-8d17-41e4568c4cd3"

	// FileEntryAppUUID is the ConfigDB application holding the file entries.
	FileEntryAppUUID = "751f5524-3e67-4d0e-ac72-65172bae1cee"

	// DeviceInfoInstanceUUID identifies this service's Device_Information
	// block in its birth certificate.
	DeviceInfoInstanceUUID = "bb47ed01-5751-4192-8708-5959ce45e684"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Service identity published in the birth certificate.
const (
	Manufacturer = "AMRC"
	Model        = "AMRC Connectivity Stack (ACS) Files Service"
)
