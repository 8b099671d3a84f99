package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"patentflow/caseflow/search"
	"patentflow/caseflow/services"

	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	cookies  []*http.Cookie
	json     interface{}
	body     io.Reader
	login    *loginInfo
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Login(email, password string) *httpTestRequest {
	r.login = &loginInfo{Email: email, Password: password}
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Cookie(cookie *http.Cookie) *httpTestRequest {
	r.cookies = append(r.cookies, cookie)
	return r
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

// DoRaw executes the request and returns the raw response without checking
// the status code.
func (r *httpTestRequest) DoRaw() (*http.Response, error) {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return nil, fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	for k, v := range r.headers {
		req.Header.Add(k, v)
	}
	for _, cookie := range r.cookies {
		req.AddCookie(cookie)
	}

	if r.login != nil {
		req.SetBasicAuth(r.login.Email, r.login.Password)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	return w.Result(), nil
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	res, err := r.DoRaw()
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		content, _ := io.ReadAll(res.Body)
		if res.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, string(content))
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

var ErrUnauthorized = errors.New("unauthorized")

// statusErrorIs reports whether err came from a response with the given
// status code.
func statusErrorIs(err error, status int) bool {
	if status == http.StatusUnauthorized {
		return errors.Is(err, ErrUnauthorized)
	}
	return err != nil && strings.Contains(err.Error(), fmt.Sprintf("returned status %d", status))
}

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Put(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "PUT", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Get("/user/login").Login(login.Email, login.Password).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["access_token"]
	c.userId = res["user_id"]

	return nil
}

func (c *client) logout() error {
	return c.Post("/user/logout").Do(nil)
}

func (c *client) userInfo() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/user/info").Do(&res)
	return res, err
}

func (c *client) listUsers() ([]services.UserInfo, error) {
	var res []services.UserInfo
	err := c.Get("/user/list").Do(&res)
	return res, err
}

func (c *client) createUser(username, email, password string, roles []string) (loginInfo, error) {
	body := map[string]interface{}{
		"username": username, "email": email, "password": password, "roles": roles,
	}

	err := c.Post("/user/create").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

type bulkCreateEntry struct {
	Email  string `json:"email"`
	UserId string `json:"user_id"`
	Error  string `json:"error"`
}

func (c *client) bulkCreateUsers(users []map[string]interface{}) ([]bulkCreateEntry, error) {
	var res struct {
		Results []bulkCreateEntry `json:"results"`
	}
	err := c.Post("/user/bulk-create").Json(map[string]interface{}{"users": users}).Do(&res)
	return res.Results, err
}

func (c *client) updateRoles(userId string, roles []string) error {
	return c.Post(fmt.Sprintf("/user/%v/roles", userId)).Json(map[string]interface{}{"roles": roles}).Do(nil)
}

func (c *client) listProjects(req search.Request) (services.ProjectListResponse, error) {
	var res services.ProjectListResponse
	err := c.Post("/project/list").Json(req).Do(&res)
	return res, err
}

func (c *client) projectInfo(projectId string) (services.ProjectInfo, error) {
	var res services.ProjectInfo
	err := c.Get(fmt.Sprintf("/project/%v", projectId)).Do(&res)
	return res, err
}

func (c *client) projectAction(projectId string, body map[string]interface{}) (services.ProjectInfo, error) {
	var res services.ProjectInfo
	err := c.Post(fmt.Sprintf("/project/%v/action", projectId)).Json(body).Do(&res)
	return res, err
}

type addRowsResult struct {
	ProjectIds []string `json:"project_ids"`
	RowNumbers []string `json:"row_numbers"`
}

func (c *client) addRows(sourceProjectId string, copyFields []string, count int) (addRowsResult, error) {
	body := map[string]interface{}{
		"source_project_id": sourceProjectId, "copy_fields": copyFields, "count": count,
	}

	var res addRowsResult
	err := c.Post("/project/add-rows").Json(body).Do(&res)
	return res, err
}

func (c *client) bulkUpdate(projectIds []string, field, value string) error {
	body := map[string]interface{}{
		"project_ids": projectIds, "field": field, "value": value,
	}
	return c.Post("/project/bulk-update").Json(body).Do(nil)
}

func (c *client) listMetadata(kind string) ([]services.LookupItemInfo, error) {
	var res []services.LookupItemInfo
	err := c.Get(fmt.Sprintf("/metadata/%v", kind)).Do(&res)
	return res, err
}

func (c *client) createMetadata(kind, name string) (services.LookupItemInfo, error) {
	var res services.LookupItemInfo
	err := c.Post(fmt.Sprintf("/metadata/%v", kind)).Json(map[string]string{"name": name}).Do(&res)
	return res, err
}

func (c *client) renameMetadata(kind, itemId, name string) error {
	return c.Put(fmt.Sprintf("/metadata/%v/%v", kind, itemId)).Json(map[string]string{"name": name}).Do(nil)
}

func (c *client) deleteMetadata(kind, itemId string) error {
	return c.Delete(fmt.Sprintf("/metadata/%v/%v", kind, itemId)).Do(nil)
}

type insightResult struct {
	ResponseType string      `json:"responseType"`
	Data         interface{} `json:"data"`
}

func (c *client) insightQuery(query string) (insightResult, error) {
	var res insightResult
	err := c.Post("/insight/").Json(map[string]string{"query": query}).Do(&res)
	return res, err
}
