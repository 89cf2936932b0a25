// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

/*
Package main is the entry point for the Cloud Frequency server.

The server renders a map of how often MODIS flagged each pixel cloudy over a
configured period and answers the map's click queries through Earth Engine.

Startup order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog
 3. Earth Engine client: service account credentials, circuit breaker
 4. Cloud frequency layer: computed once, map ID held for all requests
 5. Polygon registry: file names under static/polygons
 6. Details cache: memory, redis or badger
 7. Supervisor tree: HTTP server and cache maintenance under suture v4

Shutdown on SIGINT or SIGTERM stops accepting connections and waits for
in-flight requests up to HTTP_SHUTDOWN_TIMEOUT.

Minimal run:

	export EE_PROJECT=my-ee-project
	export EE_ACCOUNT=trendy@my-ee-project.iam.gserviceaccount.com
	export EE_PRIVATE_KEY_FILE=/secrets/privatekey.pem
	./cloudfrequency
*/
package main

// @title Cloud Frequency API
// @version 1.0.0
// @description Earth Engine cloud cover map server: point values, monthly time series and polygon details.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/cloudfrequency/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /
// @schemes http https
//
// @tag.name Core
// @tag.description Health checks and probes
//
// @tag.name Map
// @tag.description Map page queries backed by Earth Engine
