package main

import "fmt"

var buildVersion = "dev"
var buildCommitID = "unknown"

func init() {
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func versionString() string {
	return fmt.Sprintf("hauk %s\ncommit_id %s", buildVersion, buildCommitID)
}

func userAgent() string {
	return "hauk-cli/" + buildVersion
}
