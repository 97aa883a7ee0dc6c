package render

// ── Page ──────────────────────────────────────────────────────────────────────

const tmplPage = `
{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>Alliance Stats</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,sans-serif;background:#0d1117;color:#c9d1d9;font-size:14px;line-height:1.5;padding:16px}
h1{font-size:18px;color:#f0f6fc;margin-bottom:12px}
.who{color:#8b949e;font-size:12px;margin-bottom:12px}
table{width:100%;border-collapse:collapse}
th{text-align:left;padding:6px 10px;border-bottom:1px solid #30363d;color:#8b949e;font-size:12px;text-transform:uppercase;letter-spacing:.05em}
th[data-sort]{cursor:pointer;user-select:none}
th[data-sort]:hover{color:#f0f6fc}
td{padding:6px 10px;border-bottom:1px solid #21262d}
tr:hover td{background:#161b22}
button{background:#21262d;color:#c9d1d9;border:1px solid #30363d;border-radius:4px;padding:2px 8px;margin-right:4px;cursor:pointer}
button:hover{background:#30363d}
.modal-overlay{position:fixed;inset:0;background:rgba(0,0,0,.6)}
.modal-content{background:#161b22;border:1px solid #30363d;border-radius:6px;max-width:560px;margin:10vh auto;padding:16px}
.modal-content h2{font-size:15px;color:#f0f6fc;margin-bottom:8px}
.close-btn{float:right;cursor:pointer;font-size:20px;line-height:1;color:#8b949e}
.err{color:#f87171}
</style>
</head>
<body>
<h1>Alliance Stats</h1>
<div class="who">{{with .User}}Signed in as {{if .Name}}{{.Name}}{{else}}#{{.ID}}{{end}} ({{.Role}}){{else}}Viewing anonymously{{end}}</div>
<table id="statsTable">
<thead><tr>
{{range .Headers}}<th data-sort="{{.Key}}" data-dir="{{.Dir}}">{{.Label}} <span class="dir">{{arrow .Dir}}</span></th>
{{end}}<th>Actions</th>
</tr></thead>
<tbody>{{template "rows" .Rows}}</tbody>
</table>
<div id="historyModal" class="modal-overlay" style="display:{{if .Modal.Visible}}block{{else}}none{{end}}">
<div class="modal-content">
<span class="close-btn">&times;</span>
<h2>History Log</h2>
<div id="historyDataContent">{{template "modal" .Modal}}</div>
</div>
</div>
<script>
(function () {
  const sessionID = {{.SessionID}};
  const tbody = document.querySelector('#statsTable tbody');
  const modal = document.getElementById('historyModal');
  const content = document.getElementById('historyDataContent');
  const headers = document.querySelectorAll('th[data-sort]');
  const arrows = { asc: '▲', desc: '▼' };

  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/ws?session=' + encodeURIComponent(sessionID));

  function send(msg) {
    if (ws.readyState === WebSocket.OPEN) {
      ws.send(JSON.stringify(msg));
    }
  }

  headers.forEach(function (th) {
    th.addEventListener('click', function () {
      send({ type: 'Sort', column: th.dataset.sort });
    });
  });

  if (tbody) {
    tbody.addEventListener('click', function (ev) {
      const btn = ev.target.closest('button[data-action]');
      if (!btn) return;
      const id = parseInt(btn.dataset.id, 10);
      if (btn.dataset.action === 'history') send({ type: 'OpenHistory', id: id });
      if (btn.dataset.action === 'edit') send({ type: 'EditUser', id: id });
    });
  }

  const closeBtn = modal && modal.querySelector('.close-btn');
  if (closeBtn) {
    closeBtn.addEventListener('click', function () {
      modal.style.display = 'none';
      send({ type: 'CloseHistory' });
    });
  }

  ws.addEventListener('message', function (ev) {
    const msg = JSON.parse(ev.data);
    switch (msg.type) {
      case 'StateSnapshot':
        if (tbody) tbody.innerHTML = msg.table_html;
        if (content) content.innerHTML = msg.modal.html;
        if (modal) modal.style.display = msg.modal.visible ? 'block' : 'none';
        headers.forEach(function (th) {
          const dir = msg.sort && msg.sort.column === th.dataset.sort ? msg.sort.direction : '';
          th.dataset.dir = dir;
          const span = th.querySelector('.dir');
          if (span) span.textContent = arrows[dir] || '';
        });
        break;
      case 'Alert':
        console.log(msg.message);
        alert(msg.message);
        break;
      case 'Error':
        console.error(msg.error);
        alert(msg.error);
        break;
    }
  });
})();
</script>
</body>
</html>
{{end}}`

// ── Table rows ────────────────────────────────────────────────────────────────

const tmplRows = `
{{define "rows"}}{{range .}}<tr data-id="{{.ID}}">
<td>{{.Rank}}</td>
<td>{{.Name}}</td>
<td>{{.Kingdom}}</td>
<td>{{fmtPower .Power}}</td>
<td>
<button type="button" data-action="history" data-id="{{.ID}}">History</button>
{{- if .CanEdit}}
<button type="button" data-action="edit" data-id="{{.ID}}">Edit</button>
{{- end}}
</td>
</tr>
{{end}}{{end}}`

// ── History modal body ────────────────────────────────────────────────────────

const tmplModal = `
{{define "modal"}}{{if not .Visible}}{{else if .Loading}}Loading...{{else if .Err}}<p class="err">Failed to load history.</p>{{else if .Entries}}<table class="history-table">
<thead><tr><th>Date</th><th>Action</th><th>Details</th></tr></thead>
<tbody>
{{range .Entries}}<tr>
<td>{{.Date}}</td>
<td>{{.Action}}</td>
<td>{{.Details}}</td>
</tr>
{{end}}</tbody>
</table>{{else}}<p>No history found.</p>{{end}}{{end}}`
