package sparkplug

import (
	spb "github.com/EvergenEnergy/sparkplughost/protobuf"
	"google.golang.org/protobuf/proto"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
)

// Well-known Factory+ identifiers. FactoryPlusUUID goes into the uuid field
// of every birth certificate.
const (
	FactoryPlusUUID = "11ad7b32-1d32-4c4a-b0c9-fa049f8c86d3"

	schemaDeviceInformation = "2dd093e9-1450-44c5-be8c-c0d78e48219b"
	schemaService           = "05688a03-730e-4cda-9932-172e2c62e45c"
)

func stringMetric(name, value string) *spb.Payload_Metric {
	return &spb.Payload_Metric{
		Name:     proto.String(name),
		Datatype: proto.Uint32(uint32(spb.DataType_String.Number())),
		Value:    &spb.Payload_Metric_StringValue{StringValue: value},
	}
}

func uuidMetric(name, value string) *spb.Payload_Metric {
	return &spb.Payload_Metric{
		Name:     proto.String(name),
		Datatype: proto.Uint32(uint32(spb.DataType_UUID.Number())),
		Value:    &spb.Payload_Metric_StringValue{StringValue: value},
	}
}

func boolMetric(name string, value bool) *spb.Payload_Metric {
	return &spb.Payload_Metric{
		Name:     proto.String(name),
		Datatype: proto.Uint32(uint32(spb.DataType_Boolean.Number())),
		Value:    &spb.Payload_Metric_BooleanValue{BooleanValue: value},
	}
}

func nullMetric(name string, datatype spb.DataType) *spb.Payload_Metric {
	return &spb.Payload_Metric{
		Name:     proto.String(name),
		Datatype: proto.Uint32(uint32(datatype.Number())),
		IsNull:   proto.Bool(true),
	}
}

// fileEntryBirthMetrics is the birth-certificate template declaring the
// metrics a file-entry DATA message will carry.
func fileEntryBirthMetrics() []*spb.Payload_Metric {
	return []*spb.Payload_Metric{
		nullMetric("Device/Instance_UUID", spb.DataType_UUID),
		nullMetric("File_UUID", spb.DataType_UUID),
		nullMetric("Filename", spb.DataType_String),
		nullMetric("Friendly_Title", spb.DataType_String),
		nullMetric("Friendly_Description", spb.DataType_String),
		nullMetric("Uploader", spb.DataType_String),
		nullMetric("File_Type/Key", spb.DataType_String),
		nullMetric("File_Type/Title", spb.DataType_String),
		nullMetric("File_Type/Mime_Type/Mime", spb.DataType_String),
		nullMetric("File_Type/Mime_Type/Custom", spb.DataType_Boolean),
	}
}

// fileEntryDataMetrics maps a new file entry onto the DATA metric set
// matching the birth template above.
func fileEntryDataMetrics(entry *filesvc.FileEntry) []*spb.Payload_Metric {
	return []*spb.Payload_Metric{
		uuidMetric("Device/Instance_UUID", entry.Device.InstanceUUID.String()),
		uuidMetric("File_UUID", entry.FileUUID.String()),
		stringMetric("Filename", entry.Filename),
		stringMetric("Friendly_Title", entry.FriendlyTitle),
		stringMetric("Friendly_Description", entry.FriendlyDescription),
		stringMetric("Uploader", entry.Uploader),
		stringMetric("File_Type/Key", entry.FileType.Key),
		stringMetric("File_Type/Title", entry.FileType.Title),
		stringMetric("File_Type/Mime_Type/Mime", entry.FileType.MimeType.Mime),
		boolMetric("File_Type/Mime_Type/Custom", entry.FileType.MimeType.Custom != nil),
	}
}
