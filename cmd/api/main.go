//	@title			Image Share API
//	@version		1.0.0
//	@description	Minimal image hosting: upload, download and delete images by filename.
//
//	@BasePath	/
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						api-key
//	@description				Shared secret configured through API_KEY.

package main

import (
	_ "github.com/imageshare/service/docs/swagger"
)

func main() {
	Execute()
}
