package chat

import (
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

const pageHTML = `<!DOCTYPE html>
<html lang="zh-Hant">
<head>
<meta charset="utf-8">
<title>詐騙防範助手</title>
<style>
body { max-width: 760px; margin: 2rem auto; font-family: sans-serif; }
.chat-message { padding: 1.5rem; border-radius: 0.5rem; margin-bottom: 1rem; display: flex; flex-direction: column; white-space: pre-wrap; }
.user-message { background-color: #e3f2fd; border-left: 5px solid #2196f3; }
.assistant-message { background-color: #f5f5f5; border-left: 5px solid #4caf50; }
.error { color: #c62828; }
</style>
</head>
<body>
<h1>🛡️ 詐騙防範助手</h1>
<p>這是一個專門協助識別和防範詐騙的AI助手。<br>它經過特殊訓練，能夠：</p>
<ul>
<li>識別各種常見的詐騙手法</li>
<li>提供具體的防範建議</li>
<li>解答詐騙相關的疑問</li>
</ul>
{{range .History}}{{if eq .Role "user"}}<div class="chat-message user-message">👤 您：<br>{{.Content}}</div>
{{else}}<div class="chat-message assistant-message">🛡️ 防詐助手：<br>{{.Content}}</div>
{{end}}{{end}}
<p id="error" class="error"></p>
<form id="chat">
<label for="message">請描述您遇到的情況，我會協助您判斷是否為詐騙：</label><br>
<input id="message" name="message" size="60" autocomplete="off">
<button type="submit">發送</button>
</form>
<p><button id="clear">清除對話歷史</button></p>
<hr>
<p>💡 提示：如果您遇到可疑情況，請立即撥打165反詐騙專線尋求協助。</p>
<script>
const session = {{.SessionID}};
async function post(path, body) {
  const resp = await fetch(path, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)});
  return resp.json();
}
document.getElementById("chat").addEventListener("submit", async (e) => {
  e.preventDefault();
  const message = document.getElementById("message").value;
  if (!message) return;
  const data = await post("/api/chat", {session_id: session, message: message});
  if (data.error) { document.getElementById("error").textContent = data.reply || data.error; return; }
  location.reload();
});
document.getElementById("clear").addEventListener("click", async () => {
  await post("/api/clear", {session_id: session});
  location.reload();
});
</script>
</body>
</html>
`

type renderer struct {
	tmpl *template.Template
}

func newRenderer() *renderer {
	return &renderer{tmpl: template.Must(template.New("index").Parse(pageHTML))}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}
