package dashboard

import (
	"net/http"
	"strings"

	"github.com/chosenoffset/refscope/pkg/refscope/format"
)

const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>refscope</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 0; background: #f5f5f5; color: #222; }
header { background: #2d3748; color: #fff; padding: 12px 20px; display: flex; justify-content: space-between; align-items: center; }
header h1 { font-size: 18px; margin: 0; }
#status { font-size: 12px; }
#status.live { color: #68d391; }
#status.down { color: #fc8181; }
main { padding: 16px 20px; }
.doc { background: #fff; border: 1px solid #ddd; border-radius: 4px; margin-bottom: 12px; }
.doc .meta { font-size: 12px; color: #666; padding: 6px 10px; border-bottom: 1px solid #eee; }
.doc .meta .tag { background: #edf2f7; border-radius: 3px; padding: 0 4px; margin-left: 4px; }
.doc .body { padding: 8px 10px; overflow-x: auto; }
.doc pre { margin: 0; }
</style>
{{assets}}
</head>
<body>
<header><h1>refscope</h1><span id="status" class="down">disconnected</span></header>
<main id="docs"></main>
<script>
(function(){
  var docs = document.getElementById('docs');
  var status = document.getElementById('status');
  var seen = {};

  function esc(s) {
    return String(s).replace(/[&<>"]/g, function(c){
      return {'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;'}[c];
    });
  }

  function show(doc) {
    if (seen[doc.id]) return;
    seen[doc.id] = true;
    var el = document.createElement('div');
    el.className = 'doc';
    var tags = (doc.tags || []).map(function(t){ return '<span class="tag">' + esc(t) + '</span>'; }).join('');
    var body = doc.format === 'html' ? doc.body : '<pre>' + esc(doc.body) + '</pre>';
    el.innerHTML = '<div class="meta">#' + doc.sequence + ' ' + esc(doc.expression || '') +
      ' <span>' + new Date(doc.timestamp).toLocaleTimeString() + '</span>' + tags + '</div>' +
      '<div class="body">' + body + '</div>';
    docs.insertBefore(el, docs.firstChild);
  }

  function connect() {
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(proto + location.host + '/ws');
    ws.onopen = function(){ status.textContent = 'live'; status.className = 'live'; };
    ws.onclose = function(){
      status.textContent = 'disconnected'; status.className = 'down';
      setTimeout(connect, 2000);
    };
    ws.onmessage = function(e){
      var msg = JSON.parse(e.data);
      if (msg.type === 'history') (msg.data || []).forEach(show);
      if (msg.type === 'document') show(msg.data);
    };
  }
  connect();
})();
</script>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(strings.Replace(indexPage, "{{assets}}", format.Assets(), 1)))
}
