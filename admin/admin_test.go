package admin_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"mixmaster/admin"
	"mixmaster/catalog"
	"mixmaster/forms"
	"mixmaster/testutil"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type browser struct {
	t       *testing.T
	server  *httptest.Server
	client  *http.Client
	catalog *catalog.Catalog
	seed    testutil.Fixtures
}

func newBrowser(t *testing.T) *browser {
	t.Helper()
	c := testutil.NewCatalog(t)
	seed := testutil.Seed(t, c)
	site, err := admin.New(c, scs.New())
	require.NoError(t, err)

	server := httptest.NewServer(site.Handler())
	t.Cleanup(server.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &browser{t: t, server: server, client: client, catalog: c, seed: seed}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.server.URL + path)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.server.URL+path, form)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) login(email, password string) *http.Response {
	b.t.Helper()
	resp, _ := b.post("/admin/login/", url.Values{"email": {email}, "password": {password}, "next": {"/admin/drink/"}})
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestReverseAndTitle(t *testing.T) {
	c := testutil.NewCatalog(t)
	site, err := admin.New(c, scs.New())
	require.NoError(t, err)

	assert.Equal(t, "/admin/drink/", site.Reverse("drinks_drink_list"))
	assert.Equal(t, "/admin/unit_of_measure/add/", site.Reverse("drinks_unit_of_measure_add"))
	assert.Equal(t, "/admin/ingredient/abc/change/", site.Reverse("drinks_ingredient_change", "abc"))
	assert.Equal(t, "/admin/user/abc/delete/", site.Reverse("drinks_user_delete", "abc"))
	assert.Equal(t, "/admin/", site.Reverse("drinks_cocktail_list"))

	assert.Equal(t, "Alcohol Content", admin.Title("alcohol_content"))
	assert.Equal(t, "Name En", admin.Title("name_en"))
}

func TestLoginRequired(t *testing.T) {
	b := newBrowser(t)

	resp, _ := b.get("/admin/drink/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/login/?next=/admin/drink/", resp.Header.Get("Location"))

	resp = b.login("guest@mixmaster.test", testutil.UserPassword)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "non-admins stay on the login page")

	resp, body := b.post("/admin/login/", url.Values{"email": {"admin@mixmaster.test"}, "password": {"nope"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please enter the correct email and password")

	resp = b.login("admin@mixmaster.test", testutil.AdminPassword)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/drink/", resp.Header.Get("Location"))

	resp, body = b.get("/admin/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, e := range b.catalog.Entities() {
		assert.Contains(t, body, `href="/admin/`+e.Name+`/"`)
	}

	resp, _ = b.get("/admin/logout/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp, _ = b.get("/admin/drink/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestSafeNext(t *testing.T) {
	b := newBrowser(t)
	resp, _ := b.post("/admin/login/", url.Values{
		"email": {"admin@mixmaster.test"}, "password": {testutil.AdminPassword}, "next": {"//evil.test/"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/", resp.Header.Get("Location"))
}

func TestListView(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusFound, b.login("admin@mixmaster.test", testutil.AdminPassword).StatusCode)

	resp, body := b.get("/admin/unit_of_measure/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<th>Ml Conversion</th>")
	assert.Contains(t, body, "29.5735")
	assert.Contains(t, body, `href="/admin/unit_of_measure/add/"`)

	resp, body = b.get("/admin/drink/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := testutil.ID(b.seed.Mojito)
	assert.Contains(t, body, `/admin/drink/`+id+`/change/`)
	assert.Contains(t, body, `/admin/drink/`+id+`/delete/`)

	resp, _ = b.get("/admin/cocktail/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = b.get("/admin/drink/not-an-id/change/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = b.get("/admin/drink/" + primitive.NewObjectID().Hex() + "/delete/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = b.get("/admin/drink/a/b/c/d/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddView(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusFound, b.login("admin@mixmaster.test", testutil.AdminPassword).StatusCode)
	ctx := context.Background()
	profiles := b.catalog.MustEntity("flavor_profile")

	resp, body := b.get("/admin/flavor_profile/add/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="name_en"`)

	// Invalid input is shown back with its errors and nothing is stored.
	resp, body = b.post("/admin/flavor_profile/add/", url.Values{"name": {"bitter"}, "name_en": {""}, "order": {""}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, `value="bitter"`)
	docs, err := b.catalog.List(ctx, profiles, bson.M{"name": "bitter"})
	require.NoError(t, err)
	assert.Empty(t, docs)

	resp, _ = b.post("/admin/flavor_profile/add/", url.Values{"name": {"bitter"}, "name_en": {"bitter"}, "order": {""}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/flavor_profile/", resp.Header.Get("Location"))
	docs, err = b.catalog.List(ctx, profiles, bson.M{"name": "bitter"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int32(4), docs[0]["order"])

	_, body = b.get("/admin/flavor_profile/")
	assert.Contains(t, body, "was added successfully")

	resp, _ = b.post("/admin/flavor_profile/add/", url.Values{"name": {"umami"}, "name_en": {"umami"}, "_addanother": {"1"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/flavor_profile/add/", resp.Header.Get("Location"))

	resp, _ = b.post("/admin/flavor_profile/add/", url.Values{"name": {"salty"}, "name_en": {"salty"}, "_continue": {"1"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasSuffix(resp.Header.Get("Location"), "/change/"), resp.Header.Get("Location"))
}

func TestAddUserDefaults(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusFound, b.login("admin@mixmaster.test", testutil.AdminPassword).StatusCode)

	_, body := b.get("/admin/user/add/")
	assert.Contains(t, body, `name="is_active" checked`)
	assert.NotContains(t, body, `name="is_admin" checked`)

	resp, _ := b.post("/admin/user/add/", url.Values{
		"email": {"bartender@mixmaster.test"}, "name": {"Bartender"}, "password": {"muddle-muddle"}, "is_active": {"on"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	docs, err := b.catalog.List(context.Background(), b.catalog.MustEntity("user"), bson.M{"email": "bartender@mixmaster.test"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, true, docs[0]["is_active"])
	assert.Equal(t, false, docs[0]["is_admin"])
}

func TestChangeDrink(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusFound, b.login("admin@mixmaster.test", testutil.AdminPassword).StatusCode)
	id := testutil.ID(b.seed.Mojito)
	path := "/admin/drink/" + id + "/change/"

	resp, body := b.get(path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ">50 ml Rum</textarea>")
	assert.Contains(t, body, "25 ml Lime\n10 g Sugar\n6 leaf Mint (optional)</textarea>")
	assert.Contains(t, body, `<option value="Shaker" selected>`)
	assert.Contains(t, body, `href="/admin/drink/`+id+`/delete/"`)

	form := url.Values{
		"name":              {"Mojito"},
		"name_en":           {"Mojito"},
		"description":       {"Cuban highball."},
		"spirits":           {"2 oz Rum"},
		"other_ingredients": {"25 g Lime"},
		"steps":             {"Build over ice."},
		"flavor_profile":    {"fresh: 5"},
	}

	// A unit the ingredient does not allow is reported above the form and the
	// submitted text is kept.
	resp, body = b.post(path, form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Item 2: unit &#34;g&#34; is not allowed for Lime.")
	assert.Contains(t, body, ">25 g Lime</textarea>")

	form.Set("other_ingredients", "25 ml Lime")
	resp, _ = b.post(path, form)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	doc, err := b.catalog.Get(context.Background(), b.catalog.MustEntity("drink"), id)
	require.NoError(t, err)
	assert.Equal(t, "Cuban highball.", doc["description"])
	lines := forms.ReadIngredientLines(doc["ingredients"])
	require.Len(t, lines, 2)
	assert.Equal(t, forms.IngredientLine{Ingredient: "Rum", Quantity: 2, Unit: "oz", Order: 1}, lines[0])
	assert.Equal(t, "mojito", doc["slug"])
}

func TestDeleteView(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusFound, b.login("admin@mixmaster.test", testutil.AdminPassword).StatusCode)
	id := testutil.ID(b.seed.Mojito)
	path := "/admin/drink/" + id + "/delete/"

	resp, body := b.get(path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Are you sure")
	assert.Contains(t, body, "Mojito")

	resp, _ = b.post(path, url.Values{})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/drink/", resp.Header.Get("Location"))

	_, err := b.catalog.Get(context.Background(), b.catalog.MustEntity("drink"), id)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	resp, _ = b.post(path, url.Values{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeactivatedAdminIsLoggedOut(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusFound, b.login("admin@mixmaster.test", testutil.AdminPassword).StatusCode)

	_, err := b.catalog.Update(context.Background(), b.catalog.MustEntity("user"), testutil.ID(b.seed.Admin),
		map[string]any{"is_active": false}, forms.Patch)
	require.NoError(t, err)

	resp, _ := b.get("/admin/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}
