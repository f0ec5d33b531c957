package dynamo

// Attribute names of the lookups table.
const (
	fieldKind        = "kind"
	fieldID          = "id"
	fieldName        = "name"
	fieldCode        = "code"
	fieldDisplayName = "display_name"
	fieldDescription = "description"
	fieldImageURL    = "image_url"
	fieldInfoURL     = "info_url"
)
