package report

import "html/template"

var reportTemplate = template.Must(template.New("report").Parse(reportHTML))

const reportHTML = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 1080px; color: #222; }
  h1 { font-size: 1.6rem; }
  h2 { font-size: 1.2rem; margin-top: 2.5rem; }
  .meta { color: #666; font-size: 0.85rem; }
  table { border-collapse: collapse; width: 100%; margin-top: 0.75rem; }
  th, td { border-bottom: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; }
  th { background: #f5f5f5; cursor: pointer; user-select: none; }
  th.num, td.num { text-align: right; }
  tr:hover td { background: #fafafa; }
  .map img, .map object { width: 100%; height: auto; border: 1px solid #eee; }
  .controls { display: flex; gap: 0.75rem; margin-top: 1rem; align-items: center; }
  .controls input, .controls select { padding: 0.35rem 0.5rem; font-size: 0.9rem; }
  .pager { margin-top: 0.75rem; display: flex; gap: 0.5rem; align-items: center; font-size: 0.9rem; }
  .pager button { padding: 0.25rem 0.75rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Gerado em {{.GeneratedAt}} &middot; Censo Demográfico 2022 (IBGE, tabela 9605) &middot; malha municipal IBGE</p>

<h2>Resumo nacional</h2>
<table>
  <thead><tr><th>Cor ou raça</th><th class="num">População</th><th class="num">%</th></tr></thead>
  <tbody>
  {{- range .Summary}}
    <tr><td>{{.Category}}</td><td class="num">{{.Count}}</td><td class="num">{{.Percent}}</td></tr>
  {{- end}}
  </tbody>
</table>

{{- range .Sections}}
<h2 id="{{.Slug}}">{{.Name}}</h2>
<p class="meta">{{.Rows}} municípios com dados</p>
<div class="map"><img src="{{.MapFile}}" alt="Percentual da população {{.Name}} por município"></div>
{{- end}}

<h2>Municípios</h2>
<div class="controls">
  <input id="q" type="search" placeholder="Filtrar por município...">
  <select id="cat">
    <option value="">Todas as categorias</option>
  {{- range .Sections}}
    <option value="{{.Name}}">{{.Name}}</option>
  {{- end}}
  </select>
</div>
<table id="tbl">
  <thead><tr>
    <th data-k="code" class="num">Código</th>
    <th data-k="name">Município</th>
    <th data-k="category">Cor ou raça</th>
    <th data-k="count" class="num">População</th>
    <th data-k="percent" class="num">%</th>
  </tr></thead>
  <tbody></tbody>
</table>
<div class="pager">
  <button id="prev">&laquo;</button>
  <span id="page"></span>
  <button id="next">&raquo;</button>
</div>

<script>
var rows = {{.RowsJSON}};
var pageSize = {{.PageSize}};
var state = { q: "", cat: "", sortKey: "code", sortAsc: true, page: 0 };

function filtered() {
  var q = state.q.toLowerCase();
  var out = rows.filter(function (r) {
    if (state.cat && r.category !== state.cat) return false;
    if (q && r.name.toLowerCase().indexOf(q) === -1) return false;
    return true;
  });
  out.sort(function (a, b) {
    var x = a[state.sortKey], y = b[state.sortKey];
    if (typeof x === "string") { x = x.toLowerCase(); y = y.toLowerCase(); }
    if (x < y) return state.sortAsc ? -1 : 1;
    if (x > y) return state.sortAsc ? 1 : -1;
    return 0;
  });
  return out;
}

function render() {
  var data = filtered();
  var pages = Math.max(1, Math.ceil(data.length / pageSize));
  if (state.page >= pages) state.page = pages - 1;
  var start = state.page * pageSize;
  var body = document.querySelector("#tbl tbody");
  body.innerHTML = "";
  data.slice(start, start + pageSize).forEach(function (r) {
    var tr = document.createElement("tr");
    [["code", r.code], ["name", r.name], ["category", r.category],
     ["count", r.count.toLocaleString("pt-BR")], ["percent", r.percent.toFixed({{.Precision}})]
    ].forEach(function (cell) {
      var td = document.createElement("td");
      if (cell[0] !== "name" && cell[0] !== "category") td.className = "num";
      td.textContent = cell[1];
      tr.appendChild(td);
    });
    body.appendChild(tr);
  });
  document.getElementById("page").textContent =
    (state.page + 1) + " / " + pages + " (" + data.length + " linhas)";
}

document.getElementById("q").addEventListener("input", function (e) {
  state.q = e.target.value; state.page = 0; render();
});
document.getElementById("cat").addEventListener("change", function (e) {
  state.cat = e.target.value; state.page = 0; render();
});
document.querySelectorAll("#tbl th").forEach(function (th) {
  th.addEventListener("click", function () {
    var k = th.dataset.k;
    if (state.sortKey === k) { state.sortAsc = !state.sortAsc; }
    else { state.sortKey = k; state.sortAsc = true; }
    render();
  });
});
document.getElementById("prev").addEventListener("click", function () {
  if (state.page > 0) { state.page--; render(); }
});
document.getElementById("next").addEventListener("click", function () {
  state.page++; render();
});
render();
</script>
</body>
</html>
`
