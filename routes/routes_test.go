package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3ll3d00d/jriver-bridge/browse"
	"github.com/3ll3d00d/jriver-bridge/coordinator"
	"github.com/3ll3d00d/jriver-bridge/events"
	"github.com/3ll3d00d/jriver-bridge/history"
	"github.com/3ll3d00d/jriver-bridge/mcws"
	"github.com/3ll3d00d/jriver-bridge/routes"
)

func testClient() *mcws.MediaServer {
	return mcws.NewMediaServer(mcws.Options{
		Host:    "mediaserver.local",
		Port:    52199,
		Timeout: 5 * time.Second,
	})
}

func newTestRouter(t *testing.T, coord *coordinator.Coordinator, client *mcws.MediaServer) http.Handler {
	t.Helper()
	stream := events.NewServer()
	t.Cleanup(stream.Close)
	return routes.Register(http.NewServeMux(), coord, client, history.NewStore(nil), stream, nil)
}

func getJSON(t *testing.T, handler http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	return rec
}

// mockPollCycle serves everything one coordinator refresh asks for: a
// single zone named Player playing file 12345, server too old to serve
// browse rules.
func mockPollCycle() {
	gock.New("http://mediaserver.local:52199").
		Get("/MCWS/v1/Alive").
		Reply(200).
		BodyString(`<Response Status="OK">
<Item Name="FriendlyName">lounge</Item>
<Item Name="PlatformName">Linux</Item>
<Item Name="ProgramVersion">31.0.0</Item>
</Response>`)
	gock.New("http://mediaserver.local:52199").
		Get("/MCWS/v1/Playback/Zones").
		Reply(200).
		BodyString(`<Response Status="OK">
<Item Name="NumberZones">1</Item>
<Item Name="CurrentZoneID">10087</Item>
<Item Name="ZoneID0">10087</Item>
<Item Name="ZoneName0">Player</Item>
<Item Name="ZoneDLNA0">0</Item>
</Response>`)
	gock.New("http://mediaserver.local:52199").
		Get("/MCWS/v1/UserInterface/Info").
		Reply(200).
		BodyString(`<Response Status="OK">
<Item Name="Mode">3</Item>
</Response>`)
	gock.New("http://mediaserver.local:52199").
		Get("/MCWS/v1/Playback/Info").
		Reply(200).
		BodyString(`<Response Status="OK">
<Item Name="ZoneID">10087</Item>
<Item Name="ZoneName">Player</Item>
<Item Name="State">2</Item>
<Item Name="FileKey">12345</Item>
<Item Name="PositionMS">30000</Item>
<Item Name="DurationMS">180000</Item>
<Item Name="Volume">0.45</Item>
<Item Name="Name">Paranoid Android</Item>
<Item Name="Artist">Radiohead</Item>
<Item Name="Album">OK Computer</Item>
</Response>`)
	gock.New("http://mediaserver.local:52199").
		Get("/MCWS/v1/Playback/AudioPath").
		Reply(200).
		BodyString(`<Response Status="OK">
<Item Name="Direct">yes</Item>
</Response>`)
	gock.New("http://mediaserver.local:52199").
		Get("/MCWS/v1/Playback/Playlist").
		Reply(200).
		BodyString(`<MPL Version="2.0" Title="MCWS - Playlist">
<Item>
<Field Name="Key">12345</Field>
<Field Name="Name">Paranoid Android</Field>
</Item>
</MPL>`)
}

func TestBrowse_RuleWithoutClassificationListsAsDirectory(t *testing.T) {
	defer gock.Off()

	gock.New("http://mediaserver.local:52199").
		Get("/MCWS/v1/Browse/Children").
		MatchParam("ID", "-1").
		Reply(200).
		BodyString(`<Response Status="OK">
<Item Name="Books">12</Item>
<Item Name="Scratch">7</Item>
</Response>`)

	client := testClient()
	coord := coordinator.New(client,
		coordinator.WithConfiguredPaths(browse.ParsePathsFromText([]string{"Books,Author"})))
	handler := newTestRouter(t, coord, client)

	var nodes []map[string]any
	rec := getJSON(t, handler, "/api/v1/browse", &nodes)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Books is covered by a rule that says nothing about its kind so it
	// stays browsable as a directory; Scratch matches no rule at all.
	require.Len(t, nodes, 1)
	assert.Equal(t, "Books", nodes[0]["name"])
	assert.Equal(t, float64(12), nodes[0]["id"])
	assert.Equal(t, string(browse.ClassDirectory), nodes[0]["media_class"])
	assert.NotContains(t, nodes[0], "content_type")
}

func TestBrowse_ClassifiedRuleKeepsItsClass(t *testing.T) {
	defer gock.Off()

	gock.New("http://mediaserver.local:52199").
		Get("/MCWS/v1/Browse/Children").
		MatchParam("ID", "-1").
		Reply(200).
		BodyString(`<Response Status="OK">
<Item Name="Audio">3</Item>
</Response>`)

	client := testClient()
	coord := coordinator.New(client,
		coordinator.WithConfiguredPaths(browse.ParsePathsFromText([]string{"Audio,Artist|Album Artist (auto),Album"})))
	handler := newTestRouter(t, coord, client)

	var nodes []map[string]any
	getJSON(t, handler, "/api/v1/browse", &nodes)

	require.Len(t, nodes, 1)
	assert.Equal(t, "Audio", nodes[0]["name"])
	assert.Equal(t, string(browse.ClassMusic), nodes[0]["media_class"])
	assert.Equal(t, string(browse.TypeMusic), nodes[0]["content_type"])
}

func TestStatus_ReportsActiveZone(t *testing.T) {
	defer gock.Off()
	mockPollCycle()

	client := testClient()
	coord := coordinator.New(client)
	require.NoError(t, coord.Refresh(context.Background()))
	handler := newTestRouter(t, coord, client)

	var status map[string]any
	rec := getJSON(t, handler, "/api/v1/status", &status)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "theater", status["view_mode"])
	assert.Equal(t, "Player", status["active_zone"])
	assert.Equal(t, float64(10087), status["active_zone_id"])
	assert.Equal(t, false, status["needs_auth"])
}

func TestPlaying_IncludesCoverArtURL(t *testing.T) {
	defer gock.Off()
	mockPollCycle()

	client := testClient()
	coord := coordinator.New(client)
	require.NoError(t, coord.Refresh(context.Background()))
	handler := newTestRouter(t, coord, client)

	var playing map[string]any
	rec := getJSON(t, handler, "/api/v1/playing?zone=Player", &playing)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, playing["audio_direct"])
	assert.Equal(t, "http://mediaserver.local:52199/MCWS/v1/File/GetImage?File=12345", playing["image_url"])
}
