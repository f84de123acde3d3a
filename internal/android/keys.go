package android

// Keys recognized by the packaging view.
const (
	KeyGradleDependencies  = "android.gradle_dependencies"
	KeyEnableAndroidX      = "android.enable_androidx"
	KeyManifestApplication = "android.manifest.application"
	KeyAddResources        = "android.add_resources"
	KeyPermissions         = "android.permissions"
	KeyMetaData            = "android.meta_data"
)

var knownKeys = map[string]struct{}{
	KeyGradleDependencies:  {},
	KeyEnableAndroidX:      {},
	KeyManifestApplication: {},
	KeyAddResources:        {},
	KeyPermissions:         {},
	KeyMetaData:            {},
}

// IsKnownKey reports whether key is one of the recognized packaging keys.
func IsKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}
